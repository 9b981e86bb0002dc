package filtering

import (
	"context"
	"fmt"
	"strings"

	"github.com/stacklok/spigen/internal/registry"
	"github.com/stacklok/spigen/internal/validators"
)

//go:generate mockgen -destination=mocks/mock_environment.go -package=mocks -source=availability.go Environment

// Environment answers whether identifiers can be used in the current environment
type Environment interface {
	// ServiceAvailable reports whether the service can be resolved and used
	ServiceAvailable(service string) bool

	// IdentifierExists reports whether the named type can be loaded at all
	IdentifierExists(identifier string) bool

	// ProviderAvailable reports whether a loadable provider declares itself usable
	ProviderAvailable(provider string) bool
}

// AvailabilityFilter prunes malformed and unavailable declarations from a mapping
type AvailabilityFilter struct {
	env      Environment
	reporter Reporter
}

// NewAvailabilityFilter creates a filter backed by env. Each diagnostic is also
// passed to reporter when it is not nil.
func NewAvailabilityFilter(env Environment, reporter Reporter) *AvailabilityFilter {
	return &AvailabilityFilter{env: env, reporter: reporter}
}

// Apply walks the mapping in order and returns the clean mapping together with
// the diagnostics explaining every omission. Identifiers in the clean mapping
// are canonical; spellings that differ only by the leading separator collapse
// into the first one seen. Apply never fails.
func (f *AvailabilityFilter) Apply(ctx context.Context, m *registry.Mapping) (*registry.Mapping, []Diagnostic) {
	b := registry.NewBuilder()
	var diagnostics []Diagnostic

	emit := func(d Diagnostic) {
		diagnostics = append(diagnostics, d)
		if f.reporter != nil {
			f.reporter.Report(ctx, d)
		}
	}

	for _, svc := range m.Services() {
		packages := svc.Packages()
		packageList := strings.Join(packages, ", ")

		if !validators.IsValidIdentifier(svc.Name) {
			emit(Diagnostic{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Invalid extra.spi configuration, expected class name, got \"%s\" (%s)", svc.Name, packageList),
				Service:  svc.Name,
				Packages: packages,
			})
			continue
		}
		if !f.env.ServiceAvailable(svc.Name) {
			emit(Diagnostic{
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("Skipping extra.spi service \"%s\", service not available (%s)", svc.Name, packageList),
				Service:  svc.Name,
				Packages: packages,
			})
			continue
		}

		service := validators.Canonicalize(svc.Name)
		for _, declarer := range svc.Declarers {
			b.DeclareService(service, declarer)
		}
		if len(svc.Declarers) == 0 {
			b.DeclareService(service, "")
		}

		for _, binding := range svc.Bindings {
			if d, ok := f.checkProvider(service, binding); !ok {
				emit(d)
				continue
			}
			b.Bind(service, validators.Canonicalize(binding.Provider), binding.Package)
		}
	}

	return b.Build(), diagnostics
}

// checkProvider runs the provider checks in order: syntax, existence, availability
func (f *AvailabilityFilter) checkProvider(service string, binding registry.Binding) (Diagnostic, bool) {
	d := Diagnostic{
		Severity: SeverityInfo,
		Service:  service,
		Provider: binding.Provider,
		Packages: []string{binding.Package},
	}

	switch {
	case !validators.IsValidIdentifier(binding.Provider):
		d.Severity = SeverityWarning
		d.Message = fmt.Sprintf("Invalid extra.spi configuration, expected class name, got \"%s\" for \"%s\" (%s)",
			binding.Provider, service, binding.Package)
	case !f.env.IdentifierExists(binding.Provider):
		d.Message = fmt.Sprintf("Skipping extra.spi configuration, provider class \"%s\" for \"%s\" does not exist (%s)",
			binding.Provider, service, binding.Package)
	case !f.env.ProviderAvailable(binding.Provider):
		d.Message = fmt.Sprintf("Skipping extra.spi provider \"%s\" for \"%s\", provider not available (%s)",
			binding.Provider, service, binding.Package)
	default:
		return Diagnostic{}, true
	}
	return d, false
}
