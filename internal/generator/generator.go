package generator

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/stacklok/spigen/internal/config"
	"github.com/stacklok/spigen/internal/registry"
	"github.com/stacklok/spigen/internal/validators"
)

//go:embed templates/provider_data.php.tmpl
var templateFS embed.FS

var artifactTemplate = template.Must(template.ParseFS(templateFS, "templates/provider_data.php.tmpl"))

// Option configures rendering
type Option func(*options) error

type options struct {
	namespace string
	className string
}

// WithNamespace sets the namespace of the generated class
func WithNamespace(namespace string) Option {
	return func(o *options) error {
		namespace = strings.TrimPrefix(namespace, `\`)
		if err := validators.ValidateIdentifier(namespace); err != nil {
			return fmt.Errorf("invalid namespace: %w", err)
		}
		o.namespace = namespace
		return nil
	}
}

// WithClassName sets the short name of the generated class
func WithClassName(className string) Option {
	return func(o *options) error {
		if strings.ContainsRune(className, validators.NamespaceSeparator) {
			return fmt.Errorf("class name '%s' must not contain a namespace separator", className)
		}
		if err := validators.ValidateIdentifier(className); err != nil {
			return fmt.Errorf("invalid class name: %w", err)
		}
		o.className = className
		return nil
	}
}

type artifactView struct {
	Namespace string
	ClassName string
	Version   int
	Services  []serviceView
}

type serviceView struct {
	Name      string
	Providers []providerView
}

type providerView struct {
	Name    string
	Package string
}

// Render produces the artifact for a filtered mapping. Identifiers are
// written in canonical form; the mapping is expected to hold valid identifiers only.
func Render(m *registry.Mapping, opts ...Option) ([]byte, error) {
	o := &options{namespace: config.DefaultNamespace, className: config.DefaultClassName}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	view := artifactView{
		Namespace: o.namespace,
		ClassName: o.className,
		Version:   registry.SchemaVersion,
	}
	for _, svc := range m.Services() {
		if !validators.IsValidIdentifier(svc.Name) {
			return nil, fmt.Errorf("refusing to render invalid service identifier '%s'", svc.Name)
		}

		sv := serviceView{Name: validators.Canonicalize(svc.Name), Providers: []providerView{}}
		for _, b := range svc.Bindings {
			if !validators.IsValidIdentifier(b.Provider) {
				return nil, fmt.Errorf("refusing to render invalid provider identifier '%s' for '%s'", b.Provider, svc.Name)
			}
			sv.Providers = append(sv.Providers, providerView{
				Name:    validators.Canonicalize(b.Provider),
				Package: singleLine(b.Package),
			})
		}
		view.Services = append(view.Services, sv)
	}

	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// singleLine keeps a provenance comment on one line and inside the code block
func singleLine(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "?>", "? >")
}
