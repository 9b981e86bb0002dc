package filtering

import (
	"fmt"
	"slices"
)

// KeywordFilter handles package keyword filtering using exact string matching
type KeywordFilter interface {
	// ShouldInclude determines if a package with the given keywords should be included
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(keywords, include, exclude []string) (bool, string)
}

// DefaultKeywordFilter implements keyword filtering using exact string matching
type DefaultKeywordFilter struct{}

// NewDefaultKeywordFilter creates a new DefaultKeywordFilter
func NewDefaultKeywordFilter() *DefaultKeywordFilter {
	return &DefaultKeywordFilter{}
}

// ShouldInclude determines if a package with the given keywords should be included.
// Exclusion takes precedence; with include keywords set, at least one must match.
func (*DefaultKeywordFilter) ShouldInclude(keywords, include, exclude []string) (bool, string) {
	if keyword, ok := firstCommon(keywords, exclude); ok {
		return false, fmt.Sprintf("excluded by keyword '%s'", keyword)
	}

	if len(include) > 0 {
		if keyword, ok := firstCommon(keywords, include); ok {
			return true, fmt.Sprintf("included by keyword '%s'", keyword)
		}
		return false, fmt.Sprintf("no matching keywords found in include list %v (package keywords: %v)", include, keywords)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no matching keywords in exclude list %v (package keywords: %v)", exclude, keywords)
	}
	return true, "no keyword filters specified"
}

// firstCommon returns the first keyword that also appears in list
func firstCommon(keywords, list []string) (string, bool) {
	for _, keyword := range keywords {
		if slices.Contains(list, keyword) {
			return keyword, true
		}
	}
	return "", false
}
