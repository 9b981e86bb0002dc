package filtering

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/sources"
)

// PackageFilterService selects which dependency packages contribute declarations
type PackageFilterService interface {
	// ApplyFilters returns a fetch result without the excluded dependency packages.
	// The root package is never filtered.
	ApplyFilters(ctx context.Context, result *sources.FetchResult, filter *config.FilterConfig) (*sources.FetchResult, error)
}

// defaultPackageFilterService combines name and keyword filtering
type defaultPackageFilterService struct {
	nameFilter    NameFilter
	keywordFilter KeywordFilter
}

// NewDefaultPackageFilterService creates a filter service with the default filters
func NewDefaultPackageFilterService() PackageFilterService {
	return &defaultPackageFilterService{
		nameFilter:    NewDefaultNameFilter(),
		keywordFilter: NewDefaultKeywordFilter(),
	}
}

// NewPackageFilterService creates a filter service with custom filter implementations
func NewPackageFilterService(nameFilter NameFilter, keywordFilter KeywordFilter) PackageFilterService {
	return &defaultPackageFilterService{
		nameFilter:    nameFilter,
		keywordFilter: keywordFilter,
	}
}

// ApplyFilters filters the dependency packages of result.
// Only packages that pass both the name and the keyword filter are kept.
func (s *defaultPackageFilterService) ApplyFilters(
	_ context.Context,
	result *sources.FetchResult,
	filter *config.FilterConfig,
) (*sources.FetchResult, error) {
	if result == nil {
		return nil, fmt.Errorf("fetch result cannot be nil")
	}
	if filter == nil {
		return result, nil
	}

	var nameInclude, nameExclude, keywordInclude, keywordExclude []string
	if filter.Packages != nil {
		nameInclude, nameExclude = filter.Packages.Include, filter.Packages.Exclude
	}
	if filter.Keywords != nil {
		keywordInclude, keywordExclude = filter.Keywords.Include, filter.Keywords.Exclude
	}

	kept := make([]*sources.PackageRecord, 0, len(result.Packages))
	for _, pkg := range result.Packages {
		included, reason := s.shouldIncludeWithReason(pkg, nameInclude, nameExclude, keywordInclude, keywordExclude)
		if !included {
			slog.Debug("Excluding package", "package", pkg.Identity(), "reason", reason)
			continue
		}
		slog.Debug("Including package", "package", pkg.Identity(), "reason", reason)
		kept = append(kept, pkg)
	}

	if excluded := len(result.Packages) - len(kept); excluded > 0 {
		slog.Info("Package filtering completed",
			"included_packages", len(kept),
			"excluded_packages", excluded)
	}

	return sources.NewFetchResult(result.Root, kept, result.VendorDir, result.Hash), nil
}

func (s *defaultPackageFilterService) shouldIncludeWithReason(
	pkg *sources.PackageRecord,
	nameInclude, nameExclude, keywordInclude, keywordExclude []string,
) (bool, string) {
	nameIncluded, nameReason := s.nameFilter.ShouldInclude(pkg.Name, nameInclude, nameExclude)
	if !nameIncluded {
		return false, fmt.Sprintf("name filter: %s", nameReason)
	}

	keywordIncluded, keywordReason := s.keywordFilter.ShouldInclude(pkg.Keywords, keywordInclude, keywordExclude)
	if !keywordIncluded {
		return false, fmt.Sprintf("keyword filter: %s", keywordReason)
	}

	var reasons []string
	if len(nameInclude) > 0 || len(nameExclude) > 0 {
		reasons = append(reasons, fmt.Sprintf("name filter: %s", nameReason))
	}
	if len(keywordInclude) > 0 || len(keywordExclude) > 0 {
		reasons = append(reasons, fmt.Sprintf("keyword filter: %s", keywordReason))
	}
	if len(reasons) == 0 {
		return true, "no filters specified, default include"
	}
	return true, "passed all filters: " + strings.Join(reasons, " AND ")
}
