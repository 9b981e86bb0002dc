package coordinator

import (
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// watchTargets holds the cleaned paths of the watched files.
// Files are observed through their parent directories so atomic
// replacements are seen.
type watchTargets map[string]struct{}

func newWatchTargets(paths []string) watchTargets {
	targets := watchTargets{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		targets[filepath.Clean(p)] = struct{}{}
	}
	return targets
}

// dirs returns the sorted parent directories of the watched files
func (t watchTargets) dirs() []string {
	var dirs []string
	for p := range t {
		dir := filepath.Dir(p)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// isRelevant reports whether the event touches a watched file
func (t watchTargets) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	_, ok := t[filepath.Clean(event.Name)]
	return ok
}
