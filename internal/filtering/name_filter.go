package filtering

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// NameFilter handles package name filtering using glob patterns
type NameFilter interface {
	// ShouldInclude determines if a package name should be included based on include/exclude patterns
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(name string, include, exclude []string) (bool, string)
}

// defaultNameFilter implements name filtering using glob patterns
type defaultNameFilter struct{}

var _ NameFilter = (*defaultNameFilter)(nil)

// NewDefaultNameFilter creates a new defaultNameFilter
func NewDefaultNameFilter() NameFilter {
	return &defaultNameFilter{}
}

// matchPattern matches a glob pattern against a package name. Unlike
// filepath.Match, '*' also matches across the vendor separator ("acme/*-bridge").
func matchPattern(pattern, name string) (bool, error) {
	// filepath.Match reports malformed patterns such as an unterminated '['
	if _, err := filepath.Match(pattern, "test"); err != nil {
		return false, err
	}

	compiled, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern: %v", err)
	}

	return compiled.Match(name), nil
}

// ShouldInclude determines if a package should be included based on include/exclude patterns
//
// Logic:
// 1. If exclude patterns are specified and name matches any exclude pattern -> exclude (exclude takes precedence)
// 2. If include patterns are specified and name matches any include pattern -> include
// 3. If include patterns are specified and name doesn't match any -> exclude
// 4. If only exclude patterns are specified (no include) and name doesn't match exclude -> include
// 5. If no patterns are specified -> include (default behavior)
func (*defaultNameFilter) ShouldInclude(name string, include, exclude []string) (bool, string) {
	for _, pattern := range exclude {
		matches, err := matchPattern(pattern, name)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude pattern '%s': %v", pattern, err)
		}
		if matches {
			return false, fmt.Sprintf("excluded by pattern '%s'", pattern)
		}
	}

	if len(include) > 0 {
		for _, pattern := range include {
			matches, err := matchPattern(pattern, name)
			if err != nil {
				return false, fmt.Sprintf("invalid include pattern '%s': %v", pattern, err)
			}
			if matches {
				return true, fmt.Sprintf("included by pattern '%s'", pattern)
			}
		}
		return false, fmt.Sprintf("no match found in include patterns %v", include)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no match in exclude patterns %v", exclude)
	}
	return true, "no name filters specified"
}

// IdentifierPatterns is a compiled list of glob patterns over type identifiers.
// A backslash in a pattern is a namespace separator, not an escape.
type IdentifierPatterns struct {
	patterns []string
	globs    []glob.Glob
}

// CompileIdentifierPatterns compiles patterns such as `Acme\Ext\*`
func CompileIdentifierPatterns(patterns []string) (*IdentifierPatterns, error) {
	set := &IdentifierPatterns{}
	for _, pattern := range patterns {
		trimmed := strings.TrimPrefix(pattern, `\`)
		compiled, err := glob.Compile(strings.ReplaceAll(trimmed, `\`, `\\`))
		if err != nil {
			return nil, fmt.Errorf("invalid identifier pattern '%s': %w", pattern, err)
		}
		set.patterns = append(set.patterns, pattern)
		set.globs = append(set.globs, compiled)
	}
	return set, nil
}

// Match returns the first pattern matching the identifier. The identifier's
// leading separator is ignored.
func (s *IdentifierPatterns) Match(identifier string) (string, bool) {
	if s == nil {
		return "", false
	}

	id := strings.TrimPrefix(identifier, `\`)
	for i, g := range s.globs {
		if g.Match(id) {
			return s.patterns[i], true
		}
	}
	return "", false
}

// Len returns the number of patterns
func (s *IdentifierPatterns) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}
