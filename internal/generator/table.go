package generator

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stacklok/spigen/internal/validators"
)

var (
	namespaceLine = regexp.MustCompile(`^namespace\s+([^;\s]+);$`)
	classLine     = regexp.MustCompile(`^final class\s+(\S+)\s*\{$`)
	versionLine   = regexp.MustCompile(`^public const VERSION = (\d+);$`)
	serviceLine   = regexp.MustCompile(`^(\S+)::class => \[$`)
	providerLine  = regexp.MustCompile(`^(\S+)::class,(?: // (.*))?$`)
)

// Entry is one provider of a service together with its attributed package
type Entry struct {
	Provider string `json:"provider" yaml:"provider"`
	Package  string `json:"package,omitempty" yaml:"package,omitempty"`
}

// ServiceEntry is one match arm of the artifact
type ServiceEntry struct {
	Service   string  `json:"service" yaml:"service"`
	Providers []Entry `json:"providers" yaml:"providers"`
}

// Table is an artifact read back into memory
type Table struct {
	Namespace string         `json:"namespace" yaml:"namespace"`
	ClassName string         `json:"className" yaml:"className"`
	Version   int            `json:"version" yaml:"version"`
	Services  []ServiceEntry `json:"services" yaml:"services"`
}

// Providers returns the providers registered for service, or an empty list for
// unknown services. The service may be given with or without the leading separator.
func (t *Table) Providers(service string) []string {
	canonical := validators.Canonicalize(service)
	for _, s := range t.Services {
		if s.Service != canonical {
			continue
		}
		providers := make([]string, len(s.Providers))
		for i, p := range s.Providers {
			providers[i] = p.Provider
		}
		return providers
	}
	return []string{}
}

// Parse reads an artifact produced by Render
func Parse(data []byte) (*Table, error) {
	t := &Table{}
	var current *ServiceEntry
	sawVersion, sawDefault := false, false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case current != nil && line == "],":
			t.Services = append(t.Services, *current)
			current = nil
		case current != nil:
			m := providerLine.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("line %d: expected provider entry, got %q", lineNo, line)
			}
			current.Providers = append(current.Providers, Entry{Provider: m[1], Package: m[2]})
		case line == "default => [],":
			sawDefault = true
		case namespaceLine.MatchString(line):
			t.Namespace = namespaceLine.FindStringSubmatch(line)[1]
		case classLine.MatchString(line):
			t.ClassName = classLine.FindStringSubmatch(line)[1]
		case versionLine.MatchString(line):
			v, err := strconv.Atoi(versionLine.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid version: %w", lineNo, err)
			}
			t.Version = v
			sawVersion = true
		case serviceLine.MatchString(line):
			if sawDefault {
				return nil, fmt.Errorf("line %d: service entry after default case", lineNo)
			}
			current = &ServiceEntry{Service: serviceLine.FindStringSubmatch(line)[1], Providers: []Entry{}}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	switch {
	case current != nil:
		return nil, fmt.Errorf("unterminated entry for service %s", current.Service)
	case !sawVersion:
		return nil, fmt.Errorf("artifact has no VERSION constant")
	case !sawDefault:
		return nil, fmt.Errorf("artifact has no default case")
	}
	return t, nil
}
