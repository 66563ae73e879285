package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

// Hasher computes content fingerprints
type Hasher interface {
	Sum(ctx context.Context, path string) (models.Fingerprint, error)
}

// Options configures Build
type Options struct {
	// Comprehensive enables content hashing; false builds a filename-only catalog
	Comprehensive bool
	// Workers bounds the hashing pool (default 5)
	Workers int
	// QueueSize buffers walked files waiting for a worker (default 1000)
	QueueSize int
	// Skip excludes paths from the catalog; directories returning true are not descended
	Skip func(path string, isDir bool) bool
	// Logger receives scan warnings
	Logger logging.Logger
	// OnProgress is called after each indexed file with the running count
	// It may be called from several workers at once
	OnProgress func(done int)
}

// buildTask is a destination file waiting to be hashed
type buildTask struct {
	info storage.FileInfo
}

// builder is the producer/consumer state of one Build call
type builder struct {
	cat     *Catalog
	backend storage.Backend
	hasher  Hasher
	opts    Options

	queue chan buildTask
	done  int
}

// Build walks root and indexes every regular file below it
// Unreadable entries become ScanErrors; only a root walk failure or
// cancellation fails the build. Build never modifies the filesystem
func Build(ctx context.Context, backend storage.Backend, hasher Hasher, root string, opts Options) (*Catalog, error) {
	root = filepath.Clean(root)
	if opts.Workers < 1 {
		opts.Workers = 5
	}
	if opts.QueueSize < 100 {
		opts.QueueSize = 1000
	}
	if opts.Comprehensive && hasher == nil {
		return nil, fmt.Errorf("comprehensive catalog requires a hasher")
	}

	b := &builder{
		cat:     New(root, opts.Comprehensive),
		backend: backend,
		hasher:  hasher,
		opts:    opts,
		queue:   make(chan buildTask, opts.QueueSize),
	}

	exists, err := backend.Exists(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to access destination: %w", err)
	}
	if !exists {
		// A destination created by this run starts empty
		return b.cat, nil
	}

	if opts.Logger != nil {
		opts.Logger.Info(ctx, "Building destination catalog", logging.Fields{
			"root":          root,
			"comprehensive": opts.Comprehensive,
			"workers":       opts.Workers,
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start workers before walking
	var workersWg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		workersWg.Add(1)
		go b.runWorker(ctx, &workersWg)
	}

	walkErr := backend.Walk(ctx, root, b.visit(ctx))

	close(b.queue)
	workersWg.Wait()

	if walkErr != nil {
		return nil, fmt.Errorf("failed to scan destination: %w", walkErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		st := b.cat.Stats()
		opts.Logger.Info(ctx, "Destination catalog built", logging.Fields{
			"files":            st.Files,
			"unique_hashes":    st.UniqueHashes,
			"duplicate_groups": st.DuplicateGroups,
			"scan_errors":      st.ScanErrors,
		})
	}

	return b.cat, nil
}

// visit is the walk callback: it filters entries and feeds the queue
func (b *builder) visit(ctx context.Context) storage.WalkFunc {
	return func(info storage.FileInfo, err error) error {
		if err != nil {
			b.scanError(ctx, info.Path, err)
			return nil
		}

		if info.Path == b.cat.root {
			return nil
		}

		if b.opts.Skip != nil && b.opts.Skip(info.Path, info.IsDir) {
			if info.IsDir {
				return storage.SkipDir
			}
			return nil
		}

		if info.IsDir {
			return nil
		}

		if !b.opts.Comprehensive {
			b.add(models.FileRecord{Path: info.Path, Size: info.Size, ModTime: info.ModTime})
			return nil
		}

		select {
		case b.queue <- buildTask{info: info}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runWorker hashes queued files until the queue is closed
func (b *builder) runWorker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range b.queue {
		if ctx.Err() != nil {
			// Drain so the producer never blocks
			continue
		}

		fp, err := b.hasher.Sum(ctx, task.info.Path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			b.scanError(ctx, task.info.Path, err)
			continue
		}

		b.add(models.FileRecord{
			Path:        task.info.Path,
			Fingerprint: fp,
			Size:        task.info.Size,
			ModTime:     task.info.ModTime,
		})
	}
}

// add inserts a record under the catalog lock and reports progress
func (b *builder) add(rec models.FileRecord) {
	b.cat.mu.Lock()
	b.cat.insertLocked(rec)
	b.done++
	done := b.done
	b.cat.mu.Unlock()

	if b.opts.OnProgress != nil {
		b.opts.OnProgress(done)
	}
}

func (b *builder) scanError(ctx context.Context, path string, err error) {
	var he *models.HashError
	if errors.As(err, &he) {
		err = he.Err
	}
	se := &models.ScanError{Path: path, Err: err}

	b.cat.mu.Lock()
	b.cat.scanErrors = append(b.cat.scanErrors, se)
	b.cat.mu.Unlock()

	if b.opts.Logger != nil {
		b.opts.Logger.Warn(ctx, "Skipping unreadable destination entry", logging.Fields{
			"path":  path,
			"error": err.Error(),
		})
	}
}
