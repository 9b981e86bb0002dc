package registry

import "slices"

// Binding credits a provider to the package that first declared it
type Binding struct {
	Provider string
	Package  string
}

// Service is one service entry with its providers in first-seen order
type Service struct {
	Name     string
	Bindings []Binding

	// Declarers are the packages that declared the service, in first-seen order
	Declarers []string
}

// Providers returns the provider identifiers of the service in order
func (s Service) Providers() []string {
	providers := make([]string, len(s.Bindings))
	for i, b := range s.Bindings {
		providers[i] = b.Provider
	}
	return providers
}

// Packages returns the deduplicated packages credited for the service's
// providers, in first-seen order. A service without providers reports the
// packages that declared it instead.
func (s Service) Packages() []string {
	if len(s.Bindings) == 0 {
		return slices.Clone(s.Declarers)
	}

	seen := make(map[string]struct{}, len(s.Bindings))
	var packages []string
	for _, b := range s.Bindings {
		if _, ok := seen[b.Package]; ok {
			continue
		}
		seen[b.Package] = struct{}{}
		packages = append(packages, b.Package)
	}
	return packages
}

// Mapping is an ordered, read-only service to provider mapping
type Mapping struct {
	services []Service
	index    map[string]int
}

// Services returns a copy of the services in order
func (m *Mapping) Services() []Service {
	if m == nil {
		return nil
	}

	out := make([]Service, len(m.services))
	for i, s := range m.services {
		out[i] = Service{
			Name:      s.Name,
			Bindings:  slices.Clone(s.Bindings),
			Declarers: slices.Clone(s.Declarers),
		}
	}
	return out
}

// Lookup returns the service with the given name
func (m *Mapping) Lookup(name string) (Service, bool) {
	if m == nil {
		return Service{}, false
	}

	i, ok := m.index[name]
	if !ok {
		return Service{}, false
	}
	s := m.services[i]
	return Service{Name: s.Name, Bindings: slices.Clone(s.Bindings), Declarers: slices.Clone(s.Declarers)}, true
}

// Len returns the number of services
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.services)
}

// ProviderCount returns the number of bindings across all services
func (m *Mapping) ProviderCount() int {
	if m == nil {
		return 0
	}

	count := 0
	for _, s := range m.services {
		count += len(s.Bindings)
	}
	return count
}

// Builder constructs a Mapping through ordered insertion
type Builder struct {
	mapping   *Mapping
	providers []map[string]struct{}
	declarers []map[string]struct{}
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{mapping: &Mapping{index: map[string]int{}}}
}

// DeclareService records that pkg declared service, adding the service if it is new
func (b *Builder) DeclareService(service, pkg string) {
	i := b.serviceIndex(service)
	if pkg == "" {
		return
	}
	if _, ok := b.declarers[i][pkg]; ok {
		return
	}
	b.declarers[i][pkg] = struct{}{}
	b.mapping.services[i].Declarers = append(b.mapping.services[i].Declarers, pkg)
}

// Bind credits provider under service to pkg. It reports false and keeps the
// existing attribution when the provider is already bound to the service.
func (b *Builder) Bind(service, provider, pkg string) bool {
	i := b.serviceIndex(service)
	if _, ok := b.providers[i][provider]; ok {
		return false
	}
	b.providers[i][provider] = struct{}{}
	b.mapping.services[i].Bindings = append(b.mapping.services[i].Bindings, Binding{Provider: provider, Package: pkg})
	return true
}

// Build returns the mapping. The builder must not be used afterwards.
func (b *Builder) Build() *Mapping {
	m := b.mapping
	b.mapping, b.providers, b.declarers = nil, nil, nil
	return m
}

func (b *Builder) serviceIndex(service string) int {
	if i, ok := b.mapping.index[service]; ok {
		return i
	}

	i := len(b.mapping.services)
	b.mapping.index[service] = i
	b.mapping.services = append(b.mapping.services, Service{Name: service})
	b.providers = append(b.providers, map[string]struct{}{})
	b.declarers = append(b.declarers, map[string]struct{}{})
	return i
}
