package util

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// NormalizePatternPath turns file into the slash-separated, cleaned form
// exclude globs are matched against.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// PathFilter decides which directories and files take part in indexing.
// Directory globs match the directory's base name. File globs match the base
// name and the slash-separated path. An empty extension set admits every
// extension.
type PathFilter struct {
	dirs       []glob.Glob
	files      []glob.Glob
	extensions map[string]bool
}

func NewPathFilter(excludeDirs, excludeFiles, extensions []string) (*PathFilter, error) {
	f := &PathFilter{extensions: make(map[string]bool, len(extensions))}
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude dir pattern %q: %w", pattern, err)
		}
		f.dirs = append(f.dirs, g)
	}
	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude file pattern %q: %w", pattern, err)
		}
		f.files = append(f.files, g)
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = true
	}
	return f, nil
}

func (f *PathFilter) SkipDir(dir string) bool {
	if f == nil {
		return false
	}
	base := filepath.Base(dir)
	for _, g := range f.dirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (f *PathFilter) SkipFile(file string) bool {
	if f == nil {
		return false
	}
	base := filepath.Base(file)
	if len(f.extensions) > 0 && !f.extensions[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	slashed := NormalizePatternPath(file)
	for _, g := range f.files {
		if g.Match(base) || g.Match(slashed) {
			return true
		}
	}
	return false
}
