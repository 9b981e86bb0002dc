package resolver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeclaredTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		expected []string
	}{
		{
			name:     "global namespace",
			src:      "<?php\nclass Foo {}\ninterface Bar {}\n",
			expected: []string{"Foo", "Bar"},
		},
		{
			name:     "namespaced with modifiers",
			src:      "<?php\nnamespace Acme\\Log;\n\nfinal readonly class Writer {}\nenum Level: string {}\ntrait Helps {}\n",
			expected: []string{`Acme\Log\Writer`, `Acme\Log\Level`, `Acme\Log\Helps`},
		},
		{
			name:     "multiple namespaces",
			src:      "<?php\nnamespace A {\n  class One {}\n}\nnamespace B {\n  class Two {}\n}\n",
			expected: []string{`A\One`, `B\Two`},
		},
		{
			name:     "no declarations",
			src:      "<?php\nreturn [];\n",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, declaredTypes(tt.src))
		})
	}
}

func TestPSR0Path(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.FromSlash("Vendor/Pkg/Some/Class.php"), psr0Path(`Vendor\Pkg\Some_Class`))
	assert.Equal(t, filepath.FromSlash("Twig/Loader/Array.php"), psr0Path("Twig_Loader_Array"))
}

func TestParseRequirements(t *testing.T) {
	t.Parallel()

	src := `<?php
#[PackageDependency(package: "acme/a", version: "^1.0"), ExtensionDependency('intl')]
#[Deprecated]
final class X {}
`
	assert.Equal(t, []Requirement{
		{Kind: RequirementPackage, Name: "acme/a", Constraint: "^1.0"},
		{Kind: RequirementExtension, Name: "intl"},
	}, parseRequirements(src))
}
