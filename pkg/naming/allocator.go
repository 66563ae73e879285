// Package naming generates collision-free names for renamed and redirected files
package naming

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

// Occupancy reports whether a path is already taken
// Vacated paths are free even if a dry run left the file on disk
type Occupancy interface {
	Has(path string) bool
	Vacated(path string) bool
}

// Allocator hands out paths of the form stem_keyword[_NNN].ext
// A path is occupied when the catalog holds it, when it was handed out
// earlier in this run, or when it exists on disk and the catalog has not
// vacated it
type Allocator struct {
	catalog  Occupancy
	backend  storage.Backend
	mu       sync.Mutex
	reserved map[string]struct{}
	// maxCounter bounds the numbered suffix
	maxCounter int
}

// NewAllocator creates an allocator
// backend may be nil, in which case only the catalog and reservations are consulted
func NewAllocator(catalog Occupancy, backend storage.Backend) *Allocator {
	return &Allocator{
		catalog:    catalog,
		backend:    backend,
		reserved:   make(map[string]struct{}),
		maxCounter: math.MaxInt32,
	}
}

// Allocate returns the first free path among
// dir/stem_keyword.ext, dir/stem_keyword_001.ext, dir/stem_keyword_002.ext, ...
// and reserves it for the rest of the run
func (a *Allocator) Allocate(ctx context.Context, dir, stem, ext, keyword string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	candidate := filepath.Join(dir, stem+"_"+keyword+ext)
	for counter := 1; ; counter++ {
		taken, err := a.occupied(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			a.reserved[candidate] = struct{}{}
			return candidate, nil
		}
		if counter > a.maxCounter {
			return "", &models.NamingExhaustedError{Dir: dir, Stem: stem}
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%s_%03d%s", stem, keyword, counter, ext))
	}
}

// AllocateFor derives stem and extension from name
func (a *Allocator) AllocateFor(ctx context.Context, dir, name, keyword string) (string, error) {
	stem, ext := models.SplitName(name)
	return a.Allocate(ctx, dir, stem, ext, keyword)
}

// Reserve marks path as taken for the rest of the run
func (a *Allocator) Reserve(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reserved[filepath.Clean(path)] = struct{}{}
}

// Release forgets a reservation, for actions that were not carried out
func (a *Allocator) Release(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.reserved, filepath.Clean(path))
}

// Reserved reports whether path was handed out during this run
func (a *Allocator) Reserved(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.reserved[filepath.Clean(path)]
	return ok
}

func (a *Allocator) occupied(ctx context.Context, path string) (bool, error) {
	if _, ok := a.reserved[path]; ok {
		return true, nil
	}
	if a.catalog != nil {
		if a.catalog.Has(path) {
			return true, nil
		}
		if a.catalog.Vacated(path) {
			return false, nil
		}
	}
	if a.backend != nil {
		exists, err := a.backend.Exists(ctx, path)
		if err != nil {
			return false, fmt.Errorf("failed to check name %s: %w", path, err)
		}
		return exists, nil
	}
	return false, nil
}
