// Package generator renders a filtered service mapping into the generated
// provider data class and reads such artifacts back.
//
// The artifact is a total function from service identifier to an ordered list
// of provider identifiers: every service of the mapping becomes one match arm,
// in mapping order, and any other service falls through to an empty list.
// Rendering is byte-stable for identical input so callers can skip writes
// when nothing changed.
package generator
