package resolver

import (
	"regexp"
)

// RequirementKind distinguishes package from platform extension requirements
type RequirementKind string

const (
	// RequirementPackage requires an installed package
	RequirementPackage RequirementKind = "package"

	// RequirementExtension requires a loaded platform extension
	RequirementExtension RequirementKind = "extension"
)

// Requirement is one dependency attribute found on a type
type Requirement struct {
	Kind       RequirementKind
	Name       string
	Constraint string
}

var dependencyAttribute = regexp.MustCompile(
	`(?:\\?[A-Za-z_][A-Za-z0-9_]*\\)*(PackageDependency|ExtensionDependency)\s*\(\s*` +
		`(?:package:\s*|extension:\s*)?(['"])([^'"]+)['"]` +
		`(?:\s*,\s*(?:version:\s*)?(['"])([^'"]*)['"])?\s*\)`)

var attributeBlock = regexp.MustCompile(`(?s)#\[(.*?)\]`)

// parseRequirements extracts the PackageDependency and ExtensionDependency
// attributes declared in src. A missing version argument matches any version.
func parseRequirements(src string) []Requirement {
	var requirements []Requirement
	for _, block := range attributeBlock.FindAllStringSubmatch(src, -1) {
		for _, m := range dependencyAttribute.FindAllStringSubmatch(block[1], -1) {
			kind := RequirementPackage
			if m[1] == "ExtensionDependency" {
				kind = RequirementExtension
			}
			requirements = append(requirements, Requirement{
				Kind:       kind,
				Name:       m[3],
				Constraint: m[5],
			})
		}
	}
	return requirements
}
