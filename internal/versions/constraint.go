package versions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	stabilityFlag = regexp.MustCompile(`@[a-zA-Z]+`)
	twoPartTilde  = regexp.MustCompile(`^~\s*v?(\d+)\.(\d+)$`)
	orSeparator   = regexp.MustCompile(`\s*\|\|?\s*`)
	andSeparator  = regexp.MustCompile(`\s*,\s*|\s+`)
	operatorGap   = regexp.MustCompile(`(>=|<=|!=|==|>|<|=|\^|~)\s+`)
)

// Satisfies reports whether version matches a composer-style constraint such as
// "^1.2 || ~2.0" or ">=8.1 <9". An empty constraint or "*" matches any version.
func Satisfies(version, constraint string) (bool, error) {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return false, err
	}

	v, err := ParseVersion(version)
	if err != nil {
		return false, err
	}

	return c.Check(v), nil
}

// ParseVersion parses a package or platform version, tolerating the four
// segment form composer uses for normalized versions ("1.2.3.0").
func ParseVersion(version string) (*semver.Version, error) {
	trimmed := strings.TrimSpace(version)
	if parts := strings.SplitN(trimmed, "-", 2); strings.Count(parts[0], ".") == 3 {
		parts[0] = parts[0][:strings.LastIndex(parts[0], ".")]
		trimmed = strings.Join(parts, "-")
	}

	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid version '%s': %w", version, err)
	}
	return v, nil
}

// ParseConstraint translates a composer constraint into semver constraints.
func ParseConstraint(constraint string) (*semver.Constraints, error) {
	normalized := NormalizeConstraint(constraint)
	c, err := semver.NewConstraint(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint '%s': %w", constraint, err)
	}
	return c, nil
}

// NormalizeConstraint rewrites composer constraint syntax into the syntax
// understood by Masterminds/semver.
func NormalizeConstraint(constraint string) string {
	constraint = strings.TrimSpace(stabilityFlag.ReplaceAllString(constraint, ""))
	if constraint == "" {
		return "*"
	}

	alternatives := orSeparator.Split(constraint, -1)
	out := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		alt = operatorGap.ReplaceAllString(strings.TrimSpace(alt), "$1")
		if alt == "" {
			continue
		}

		if strings.Contains(alt, " - ") {
			out = append(out, alt)
			continue
		}

		terms := andSeparator.Split(alt, -1)
		for i, term := range terms {
			terms[i] = normalizeTerm(term)
		}
		out = append(out, strings.Join(terms, ", "))
	}

	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, " || ")
}

// normalizeTerm widens composer's two segment tilde ("~1.2" allows up to 2.0).
func normalizeTerm(term string) string {
	m := twoPartTilde.FindStringSubmatch(term)
	if m == nil {
		return term
	}

	major, err := strconv.Atoi(m[1])
	if err != nil {
		return term
	}
	return fmt.Sprintf(">=%s.%s.0, <%d.0.0", m[1], m[2], major+1)
}
