// Package registry builds the ordered service to provider mapping that the
// generator turns into an artifact.
//
// Aggregate merges the provider declarations of the root package and of every
// dependency package, in that order. The first package to declare a
// (service, provider) pair is credited with it; later declarations of the same
// pair are ignored. Services and providers keep first-seen order so that
// regenerating from unchanged inputs yields an identical artifact.
//
// A Mapping is immutable once built. Filters derive new mappings through a
// Builder instead of editing an existing one.
package registry
