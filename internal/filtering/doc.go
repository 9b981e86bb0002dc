// Package filtering decides which packages and declarations reach the generated artifact.
//
// Two stages live here:
//
//   - PackageFilterService drops whole dependency packages before aggregation,
//     using glob patterns on package names (NameFilter) and exact keyword
//     matches (KeywordFilter). Exclusion always takes precedence over inclusion
//     and the root package is never filtered.
//   - AvailabilityFilter prunes the aggregated mapping. For each service, in
//     mapping order, a malformed name yields a warning and an unavailable
//     service yields an info diagnostic; either drops the whole entry. For each
//     provider of a surviving service, a malformed name (warning), a type that
//     does not exist (info) or a provider that declares itself unavailable
//     (info) drops that provider only. Surviving services are kept even when no
//     provider survives.
//
// Diagnostics never abort a run. They are returned from Apply and can be
// streamed to a Reporter; NewSlogReporter logs warnings at WARN and the rest at INFO.
//
// # Usage Example
//
//	filter := filtering.NewAvailabilityFilter(env, filtering.NewSlogReporter(nil))
//	clean, diagnostics := filter.Apply(ctx, mapping)
package filtering
