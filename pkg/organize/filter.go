package organize

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides which source entries are candidates for organizing
// Patterns use doublestar syntax:
//   - a pattern without a slash matches the base name at any depth: *.tmp
//   - a pattern with a slash matches the path relative to the source: raw/**/*.nef
//   - a trailing slash restricts the pattern to directories: .thumbnails/
type Filter struct {
	extensions map[string]struct{}
	patterns   []pattern
}

type pattern struct {
	glob    string
	dirOnly bool
	anchor  bool
}

// NewFilter validates patterns and builds a filter
// extensions are expected normalized (lower-case, leading dot); empty allows all
func NewFilter(extensions, patterns []string) (*Filter, error) {
	f := &Filter{extensions: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		f.extensions[ext] = struct{}{}
	}

	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p == "" {
			continue
		}
		pat := pattern{}
		if strings.HasSuffix(p, "/") {
			pat.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		pat.anchor = strings.Contains(p, "/")
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		pat.glob = p
		f.patterns = append(f.patterns, pat)
	}

	return f, nil
}

// AcceptsExtension reports whether name has one of the configured extensions
func (f *Filter) AcceptsExtension(name string) bool {
	if len(f.extensions) == 0 {
		return true
	}
	_, ok := f.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Excluded reports whether the entry at rel (relative to the source root) matches an exclude pattern
func (f *Filter) Excluded(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}

	for _, p := range f.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := base
		if p.anchor {
			subject = rel
		}
		if ok, err := doublestar.Match(p.glob, subject); err == nil && ok {
			return true
		}
	}
	return false
}
