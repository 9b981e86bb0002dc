// Package validators provides validation functions for service and provider identifiers.
package validators

import (
	"fmt"
	"strings"
)

// NamespaceSeparator separates the segments of a fully-qualified type identifier.
const NamespaceSeparator = '\\'

// ValidateIdentifier validates a fully-qualified type identifier such as
// `Vendor\Package\Service` and returns an error describing the first problem found.
//
// Format requirements:
// - One or more segments separated by '\'
// - An optional leading '\' (absolute form)
// - Each segment starts with a letter, '_' or a byte in 0x80-0xff
// - Each segment continues with letters, digits, '_' or bytes in 0x80-0xff
// - No empty segments and no trailing separator
//
// The check is purely syntactic; it does not verify that the identifier
// resolves to loadable code.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}

	body := strings.TrimPrefix(id, string(NamespaceSeparator))
	if body == "" {
		return fmt.Errorf("identifier '%s' has no segments", id)
	}

	for i, segment := range strings.Split(body, string(NamespaceSeparator)) {
		if err := validateSegment(segment); err != nil {
			return fmt.Errorf("identifier '%s': segment %d %w", id, i, err)
		}
	}

	return nil
}

// IsValidIdentifier reports whether id is a syntactically valid fully-qualified type identifier.
// This is a convenience wrapper around ValidateIdentifier for boolean checks.
func IsValidIdentifier(id string) bool {
	return ValidateIdentifier(id) == nil
}

// Canonicalize returns the absolute form of an identifier, with exactly one leading separator.
// It does not validate the identifier.
func Canonicalize(id string) string {
	if strings.HasPrefix(id, string(NamespaceSeparator)) {
		return id
	}
	return string(NamespaceSeparator) + id
}

func validateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("is empty")
	}
	if !isIdentifierStart(segment[0]) {
		return fmt.Errorf("starts with invalid character %q", segment[0])
	}
	for i := 1; i < len(segment); i++ {
		if !isIdentifierPart(segment[i]) {
			return fmt.Errorf("contains invalid character %q", segment[i])
		}
	}
	return nil
}

// Bytes are inspected individually so that every byte of a multi-byte UTF-8
// sequence counts as a letter, matching how the target language lexes names.
func isIdentifierStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentifierPart(c byte) bool {
	return isIdentifierStart(c) || (c >= '0' && c <= '9')
}
