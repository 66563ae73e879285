// Package layout maps dates and records onto destination paths
package layout

import (
	"path/filepath"
	"strings"
	"time"
)

// DateFormat is the name format of date folders
const DateFormat = "2006_01_02"

// Layout describes the destination tree: destRoot/YYYY_MM_DD/<name>
// with redirected duplicates under redirectRoot/YYYY_MM_DD/<name>
type Layout struct {
	DestRoot     string
	RedirectRoot string
}

// New creates a layout; a relative redirectDir is resolved against destRoot
func New(destRoot, redirectDir string) Layout {
	return Layout{
		DestRoot:     filepath.Clean(destRoot),
		RedirectRoot: RedirectRoot(destRoot, redirectDir),
	}
}

// RedirectRoot resolves the redirect directory against the destination
func RedirectRoot(destRoot, redirectDir string) string {
	if redirectDir == "" {
		return ""
	}
	if filepath.IsAbs(redirectDir) {
		return filepath.Clean(redirectDir)
	}
	return filepath.Join(destRoot, redirectDir)
}

// DateFolder returns the folder name for a date
func DateFolder(t time.Time) string {
	return t.Format(DateFormat)
}

// TargetDir returns the date folder an incoming file belongs to
func (l Layout) TargetDir(t time.Time) string {
	return filepath.Join(l.DestRoot, DateFolder(t))
}

// RedirectDirFor returns the redirect folder mirroring a destination folder
// Folders outside the destination mirror their base name only
func (l Layout) RedirectDirFor(dir string) string {
	rel, err := filepath.Rel(l.DestRoot, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(dir)
	}
	if rel == "." {
		return l.RedirectRoot
	}
	return filepath.Join(l.RedirectRoot, rel)
}

// InRedirectTree reports whether path lies inside the redirect tree
func (l Layout) InRedirectTree(path string) bool {
	if l.RedirectRoot == "" {
		return false
	}
	return IsWithin(l.RedirectRoot, path)
}

// IsWithin reports whether path is root or lies below it
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
