package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/stacklok/spigen/internal/sources"
)

func pkg(name string, decls ...sources.Declaration) *sources.PackageRecord {
	return &sources.PackageRecord{Name: name, PrettyVersion: "1.0.0", Declarations: decls}
}

func decl(service string, providers ...string) sources.Declaration {
	return sources.Declaration{Service: service, Providers: providers}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		root     *sources.PackageRecord
		deps     []*sources.PackageRecord
		expected []Service
	}{
		{
			name:     "no declarations",
			root:     pkg("acme/app"),
			expected: []Service{},
		},
		{
			name: "root then dependencies in order",
			root: pkg("acme/app", decl(`Acme\Logger`, `App\Logger`)),
			deps: []*sources.PackageRecord{
				pkg("acme/one", decl(`Acme\Logger`, `One\Logger`), decl(`Acme\Cache`, `One\Cache`)),
				pkg("acme/two", decl(`Acme\Cache`, `Two\Cache`)),
			},
			expected: []Service{
				{
					Name: `Acme\Logger`,
					Bindings: []Binding{
						{Provider: `App\Logger`, Package: "acme/app 1.0.0"},
						{Provider: `One\Logger`, Package: "acme/one 1.0.0"},
					},
					Declarers: []string{"acme/app 1.0.0", "acme/one 1.0.0"},
				},
				{
					Name: `Acme\Cache`,
					Bindings: []Binding{
						{Provider: `One\Cache`, Package: "acme/one 1.0.0"},
						{Provider: `Two\Cache`, Package: "acme/two 1.0.0"},
					},
					Declarers: []string{"acme/one 1.0.0", "acme/two 1.0.0"},
				},
			},
		},
		{
			name: "first declaration wins attribution",
			root: pkg("acme/app"),
			deps: []*sources.PackageRecord{
				pkg("acme/one", decl(`Acme\Svc`, `Shared\Impl`)),
				pkg("acme/two", decl(`Acme\Svc`, `Two\Impl`, `Shared\Impl`)),
			},
			expected: []Service{
				{
					Name: `Acme\Svc`,
					Bindings: []Binding{
						{Provider: `Shared\Impl`, Package: "acme/one 1.0.0"},
						{Provider: `Two\Impl`, Package: "acme/two 1.0.0"},
					},
					Declarers: []string{"acme/one 1.0.0", "acme/two 1.0.0"},
				},
			},
		},
		{
			name: "duplicate within one package is a no-op",
			root: pkg("acme/app", decl(`Acme\Svc`, `A\Impl`, `A\Impl`), decl(`Acme\Svc`, `B\Impl`)),
			expected: []Service{
				{
					Name: `Acme\Svc`,
					Bindings: []Binding{
						{Provider: `A\Impl`, Package: "acme/app 1.0.0"},
						{Provider: `B\Impl`, Package: "acme/app 1.0.0"},
					},
					Declarers: []string{"acme/app 1.0.0"},
				},
			},
		},
		{
			name: "service declared without providers is kept",
			root: pkg("acme/app", decl(`Acme\Empty`)),
			expected: []Service{
				{Name: `Acme\Empty`, Declarers: []string{"acme/app 1.0.0"}},
			},
		},
		{
			name: "nil dependency is skipped",
			root: pkg("acme/app", decl(`Acme\Svc`, `A\Impl`)),
			deps: []*sources.PackageRecord{nil},
			expected: []Service{
				{
					Name:      `Acme\Svc`,
					Bindings:  []Binding{{Provider: `A\Impl`, Package: "acme/app 1.0.0"}},
					Declarers: []string{"acme/app 1.0.0"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := Aggregate(tt.root, tt.deps)
			assert.Equal(t, tt.expected, m.Services())
			assert.Equal(t, len(tt.expected), m.Len())
		})
	}
}

func TestMapping_Accessors(t *testing.T) {
	t.Parallel()

	m := Aggregate(
		pkg("acme/app", decl(`Acme\Svc`, `A\Impl`)),
		[]*sources.PackageRecord{
			pkg("acme/one", decl(`Acme\Svc`, `B\Impl`, `C\Impl`), decl(`Acme\Empty`)),
		},
	)

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 3, m.ProviderCount())

	svc, ok := m.Lookup(`Acme\Svc`)
	require.True(t, ok)
	assert.Equal(t, []string{`A\Impl`, `B\Impl`, `C\Impl`}, svc.Providers())
	assert.Equal(t, []string{"acme/app 1.0.0", "acme/one 1.0.0"}, svc.Packages())

	empty, ok := m.Lookup(`Acme\Empty`)
	require.True(t, ok)
	assert.Empty(t, empty.Providers())
	assert.Equal(t, []string{"acme/one 1.0.0"}, empty.Packages(), "declarers stand in for missing attribution")

	_, ok = m.Lookup(`Acme\Missing`)
	assert.False(t, ok)

	// Returned services are copies.
	svc.Bindings[0].Provider = "mutated"
	again, _ := m.Lookup(`Acme\Svc`)
	assert.Equal(t, `A\Impl`, again.Bindings[0].Provider)
}

func TestMapping_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Mapping
	assert.Nil(t, m.Services())
	assert.Zero(t, m.Len())
	assert.Zero(t, m.ProviderCount())
	_, ok := m.Lookup("x")
	assert.False(t, ok)
}

func TestBuilder_Bind(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	assert.True(t, b.Bind("svc", "p1", "pkg-a"))
	assert.False(t, b.Bind("svc", "p1", "pkg-b"))
	assert.True(t, b.Bind("other", "p1", "pkg-b"))

	m := b.Build()
	svc, _ := m.Lookup("svc")
	assert.Equal(t, []Binding{{Provider: "p1", Package: "pkg-a"}}, svc.Bindings)
	assert.Empty(t, svc.Declarers)
}

// packagesGen draws small package lists whose declarations overlap often.
func packagesGen() *rapid.Generator[[]*sources.PackageRecord] {
	return rapid.Custom(func(t *rapid.T) []*sources.PackageRecord {
		n := rapid.IntRange(1, 6).Draw(t, "packages")
		services := rapid.SampledFrom([]string{`S\A`, `S\B`, `S\C`})
		providers := rapid.SampledFrom([]string{`P\One`, `P\Two`, `P\Three`, `P\Four`})

		out := make([]*sources.PackageRecord, n)
		for i := range out {
			var decls []sources.Declaration
			for range rapid.IntRange(0, 3).Draw(t, "decls") {
				decls = append(decls, sources.Declaration{
					Service:   services.Draw(t, "service"),
					Providers: rapid.SliceOfN(providers, 0, 4).Draw(t, "providers"),
				})
			}
			out[i] = &sources.PackageRecord{Name: fmt.Sprintf("vendor/p%d", i), PrettyVersion: "1.0.0", Declarations: decls}
		}
		return out
	})
}

func TestAggregate_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		packages := packagesGen().Draw(rt, "records")
		root, deps := packages[0], packages[1:]

		m := Aggregate(root, deps)

		// Deterministic for identical input.
		require.Equal(rt, m.Services(), Aggregate(root, deps).Services())

		// Every declared pair is bound exactly once, credited to its first declarer,
		// and providers appear in first-insertion order.
		type pair struct{ service, provider string }
		firstBy := map[pair]string{}
		order := map[string][]string{}
		for _, p := range packages {
			for _, d := range p.Declarations {
				if _, ok := order[d.Service]; !ok {
					order[d.Service] = []string{}
				}
				for _, provider := range d.Providers {
					key := pair{d.Service, provider}
					if _, ok := firstBy[key]; ok {
						continue
					}
					firstBy[key] = p.Identity()
					order[d.Service] = append(order[d.Service], provider)
				}
			}
		}

		require.Equal(rt, len(order), m.Len())
		require.Equal(rt, len(firstBy), m.ProviderCount())
		for _, svc := range m.Services() {
			require.Equal(rt, order[svc.Name], svc.Providers())
			for _, b := range svc.Bindings {
				require.Equal(rt, firstBy[pair{svc.Name, b.Provider}], b.Package)
			}
		}
	})
}
