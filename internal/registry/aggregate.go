package registry

import (
	"github.com/stacklok/spigen/internal/sources"
)

// Aggregate merges the declarations of root and deps, processing root first and
// then deps in the given order. The first package to declare a
// (service, provider) pair is credited with it. A declared service with no
// providers is kept with an empty provider list.
func Aggregate(root *sources.PackageRecord, deps []*sources.PackageRecord) *Mapping {
	b := NewBuilder()

	add := func(pkg *sources.PackageRecord) {
		if pkg == nil {
			return
		}
		identity := pkg.Identity()
		for _, decl := range pkg.Declarations {
			b.DeclareService(decl.Service, identity)
			for _, provider := range decl.Providers {
				b.Bind(decl.Service, provider, identity)
			}
		}
	}

	add(root)
	for _, dep := range deps {
		add(dep)
	}

	return b.Build()
}
