// Package catalog indexes the files already present in the destination tree
package catalog

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// Stats summarizes a catalog
type Stats struct {
	Files           int
	UniqueHashes    int
	DuplicateGroups int // fingerprints held by more than one record
	ScanErrors      int
}

// Catalog maps content fingerprints and paths to destination records
// It is built once per run and kept current by the executor
type Catalog struct {
	mu            sync.RWMutex
	root          string
	comprehensive bool
	byPath        map[string]models.FileRecord
	byHash        map[models.Fingerprint]map[string]struct{}
	// vacated holds paths whose record left during this run
	vacated    map[string]struct{}
	scanErrors []*models.ScanError
}

// New creates an empty catalog for the destination root
// A non-comprehensive catalog indexes names only
func New(root string, comprehensive bool) *Catalog {
	return &Catalog{
		root:          filepath.Clean(root),
		comprehensive: comprehensive,
		byPath:        make(map[string]models.FileRecord),
		byHash:        make(map[models.Fingerprint]map[string]struct{}),
		vacated:       make(map[string]struct{}),
	}
}

// Root returns the destination root the catalog describes
func (c *Catalog) Root() string {
	return c.root
}

// Comprehensive reports whether records carry content fingerprints
func (c *Catalog) Comprehensive() bool {
	return c.comprehensive
}

// Insert adds a record, replacing any record at the same path
func (c *Catalog) Insert(rec models.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(rec)
}

func (c *Catalog) insertLocked(rec models.FileRecord) {
	rec.Path = filepath.Clean(rec.Path)
	if old, ok := c.byPath[rec.Path]; ok {
		c.unindexHash(old)
	}
	c.byPath[rec.Path] = rec
	delete(c.vacated, rec.Path)
	if !rec.Fingerprint.IsZero() {
		set, ok := c.byHash[rec.Fingerprint]
		if !ok {
			set = make(map[string]struct{})
			c.byHash[rec.Fingerprint] = set
		}
		set[rec.Path] = struct{}{}
	}
}

func (c *Catalog) unindexHash(rec models.FileRecord) {
	if rec.Fingerprint.IsZero() {
		return
	}
	if set, ok := c.byHash[rec.Fingerprint]; ok {
		delete(set, rec.Path)
		if len(set) == 0 {
			delete(c.byHash, rec.Fingerprint)
		}
	}
}

// Remove deletes the record at path and reports whether one existed
func (c *Catalog) Remove(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	path = filepath.Clean(path)
	rec, ok := c.byPath[path]
	if !ok {
		return false
	}
	c.unindexHash(rec)
	delete(c.byPath, path)
	c.vacated[path] = struct{}{}
	return true
}

// Move re-keys the record at oldPath to newPath
func (c *Catalog) Move(oldPath, newPath string) (models.FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldPath = filepath.Clean(oldPath)
	rec, ok := c.byPath[oldPath]
	if !ok {
		return models.FileRecord{}, false
	}
	c.unindexHash(rec)
	delete(c.byPath, oldPath)
	c.vacated[oldPath] = struct{}{}

	moved := rec.Relocated(filepath.Clean(newPath))
	c.insertLocked(moved)
	return moved, true
}

// Lookup returns the record at path
func (c *Catalog) Lookup(path string) (models.FileRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byPath[filepath.Clean(path)]
	return rec, ok
}

// Has reports whether a record exists at path
func (c *Catalog) Has(path string) bool {
	_, ok := c.Lookup(path)
	return ok
}

// Vacated reports whether the record at path was moved or removed since
// the catalog was built and nothing has taken its place
func (c *Catalog) Vacated(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.vacated[filepath.Clean(path)]
	return ok
}

// LookupByHash returns every record with the fingerprint, ordered by path
// A zero fingerprint never matches
func (c *Catalog) LookupByHash(fp models.Fingerprint) []models.FileRecord {
	if fp.IsZero() {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	set := c.byHash[fp]
	if len(set) == 0 {
		return nil
	}
	out := make([]models.FileRecord, 0, len(set))
	for p := range set {
		out = append(out, c.byPath[p])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// LookupByName returns the record named name directly inside dir
func (c *Catalog) LookupByName(dir, name string) (models.FileRecord, bool) {
	return c.Lookup(filepath.Join(dir, name))
}

// Len returns the number of records
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byPath)
}

// ScanErrors returns the entries that could not be indexed during Build
func (c *Catalog) ScanErrors() []*models.ScanError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*models.ScanError(nil), c.scanErrors...)
}

// Stats returns catalog statistics
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Files:        len(c.byPath),
		UniqueHashes: len(c.byHash),
		ScanErrors:   len(c.scanErrors),
	}
	for _, set := range c.byHash {
		if len(set) > 1 {
			s.DuplicateGroups++
		}
	}
	return s
}
