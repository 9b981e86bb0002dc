package resolver

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/stacklok/spigen/internal/sources"
)

var (
	namespaceDecl = regexp.MustCompile(`(?m)^\s*namespace\s+([A-Za-z_\x80-\xff][A-Za-z0-9_\x80-\xff\\]*)\s*[;{]`)
	typeDecl      = regexp.MustCompile(
		`(?m)^\s*(?:(?:final|abstract|readonly)\s+)*(?:class|interface|trait|enum)\s+([A-Za-z_\x80-\xff][A-Za-z0-9_\x80-\xff]*)`)
)

// sourceExtensions are the file extensions scanned for classmap entries
var sourceExtensions = map[string]bool{".php": true, ".inc": true, ".hh": true}

// prefixRule maps a namespace prefix to base directories
type prefixRule struct {
	prefix string
	dirs   []string
}

// classIndex locates the file defining a type identifier
type classIndex struct {
	classmap map[string]string
	psr4     []prefixRule
	psr0     []prefixRule
}

// buildIndex collects the autoload rules of all packages. Paths are resolved
// against each package's install path.
func buildIndex(packages []*sources.PackageRecord) *classIndex {
	idx := &classIndex{classmap: map[string]string{}}

	for _, pkg := range packages {
		if pkg == nil {
			continue
		}
		for _, rule := range pkg.Autoload.PSR4 {
			idx.psr4 = append(idx.psr4, prefixRule{prefix: rule.Prefix, dirs: resolveAll(pkg.InstallPath, rule.Paths)})
		}
		for _, rule := range pkg.Autoload.PSR0 {
			idx.psr0 = append(idx.psr0, prefixRule{prefix: rule.Prefix, dirs: resolveAll(pkg.InstallPath, rule.Paths)})
		}
		for _, path := range resolveAll(pkg.InstallPath, pkg.Autoload.Classmap) {
			idx.scanClassmap(path)
		}
	}

	// Longest prefix first; the stable sort keeps package order among equals.
	byLength := func(rules []prefixRule) func(i, j int) bool {
		return func(i, j int) bool { return len(rules[i].prefix) > len(rules[j].prefix) }
	}
	sort.SliceStable(idx.psr4, byLength(idx.psr4))
	sort.SliceStable(idx.psr0, byLength(idx.psr0))

	return idx
}

// locate returns the file defining identifier, which must not carry a leading separator
func (idx *classIndex) locate(identifier string) (string, bool) {
	if path, ok := idx.classmap[identifier]; ok {
		return path, true
	}

	for _, rule := range idx.psr4 {
		if !strings.HasPrefix(identifier, rule.prefix) {
			continue
		}
		relative := filepath.FromSlash(strings.ReplaceAll(identifier[len(rule.prefix):], `\`, "/")) + ".php"
		if path, ok := firstExisting(rule.dirs, relative); ok {
			return path, true
		}
	}

	relative := psr0Path(identifier)
	for _, rule := range idx.psr0 {
		if !strings.HasPrefix(identifier, rule.prefix) {
			continue
		}
		if path, ok := firstExisting(rule.dirs, relative); ok {
			return path, true
		}
	}

	return "", false
}

// scanClassmap registers every type declared in path, a file or a directory tree
func (idx *classIndex) scanClassmap(path string) {
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !sourceExtensions[filepath.Ext(p)] {
			return nil
		}
		idx.scanFile(p)
		return nil
	})
	if err != nil {
		slog.Debug("Skipping classmap path", "path", path, "error", err)
	}
}

func (idx *classIndex) scanFile(path string) {
	//nolint:gosec // Paths come from installed package metadata
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("Failed to read classmap file", "path", path, "error", err)
		return
	}

	for _, name := range declaredTypes(string(data)) {
		if _, ok := idx.classmap[name]; !ok {
			idx.classmap[name] = path
		}
	}
}

// declaredTypes returns the fully-qualified names of the types declared in src.
// Each declaration belongs to the closest namespace statement above it.
func declaredTypes(src string) []string {
	namespaces := namespaceDecl.FindAllStringSubmatchIndex(src, -1)

	var names []string
	for _, m := range typeDecl.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		namespace := ""
		for _, ns := range namespaces {
			if ns[0] > m[0] {
				break
			}
			namespace = src[ns[2]:ns[3]]
		}
		if namespace != "" {
			name = namespace + `\` + name
		}
		names = append(names, name)
	}
	return names
}

// psr0Path maps `Vendor\Pkg\Some_Class` to Vendor/Pkg/Some/Class.php
func psr0Path(identifier string) string {
	namespace, class := "", identifier
	if i := strings.LastIndex(identifier, `\`); i >= 0 {
		namespace, class = identifier[:i+1], identifier[i+1:]
	}
	logical := strings.ReplaceAll(namespace, `\`, "/") + strings.ReplaceAll(class, "_", "/") + ".php"
	return filepath.FromSlash(logical)
}

func firstExisting(dirs []string, relative string) (string, bool) {
	for _, dir := range dirs {
		path := filepath.Join(dir, relative)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

func resolveAll(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.FromSlash(p)
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}
