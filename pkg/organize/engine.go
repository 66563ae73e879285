// Package organize runs one ingestion pass from a source tree into the dated destination
package organize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sdejongh/orgphoto/pkg/catalog"
	"github.com/sdejongh/orgphoto/pkg/conflict"
	"github.com/sdejongh/orgphoto/pkg/executor"
	"github.com/sdejongh/orgphoto/pkg/fingerprint"
	"github.com/sdejongh/orgphoto/pkg/keyword"
	"github.com/sdejongh/orgphoto/pkg/layout"
	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/metadata"
	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/naming"
	"github.com/sdejongh/orgphoto/pkg/ratelimit"
	"github.com/sdejongh/orgphoto/pkg/resolve"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

// DefaultProgressEvery is how many files pass between progress log lines
const DefaultProgressEvery = 100

// Progress phases
const (
	PhaseCatalog  = "catalog"
	PhaseScan     = "scan"
	PhaseOrganize = "organize"
)

// Progress is reported while the run advances
type Progress struct {
	Phase string
	Done  int
	// Total is zero while unknown
	Total int
	Path  string
}

// Options holds the collaborators of an engine
type Options struct {
	Logger logging.Logger
	// Sink receives one event per applied action
	Sink EventSink
	// Prompter is required in interactive mode
	Prompter resolve.Prompter
	// Extractor reads embedded dates; nil dates files by modification time
	Extractor metadata.Extractor
	// OnProgress is optional
	OnProgress func(Progress)
	// ProgressEvery defaults to DefaultProgressEvery
	ProgressEvery int
	// IgnorePaths are files inside the destination that are never catalogued,
	// such as the run's own log file or journal
	IgnorePaths []string
	// Version is written to the session header
	Version string
}

// Engine orchestrates an organize run
type Engine struct {
	backend   storage.Backend
	operation *models.RunOperation
	opts      Options
	logger    logging.Logger
}

// NewEngine creates a new organize engine
func NewEngine(backend storage.Backend, operation *models.RunOperation, opts Options) (*Engine, error) {
	if err := operation.Validate(); err != nil {
		return nil, err
	}
	if operation.DuplicateMode == models.ModeInteractive && opts.Prompter == nil {
		return nil, fmt.Errorf("interactive mode requires a prompter")
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		backend:   backend,
		operation: operation,
		opts:      opts,
		logger:    logger,
	}, nil
}

// run is the per-run state shared by the processing steps
type run struct {
	report     *models.RunReport
	layout     layout.Layout
	catalog    *catalog.Catalog
	hasher     *fingerprint.Hasher
	dater      *metadata.Dater
	filter     *Filter
	classifier *conflict.Classifier
	resolver   *resolve.Resolver
	executor   *executor.Executor
	processed  int
}

// Run executes the organize operation
// The returned report is always non-nil when err is a run failure or a
// cancellation; per-file errors only show in the report
func (e *Engine) Run(ctx context.Context) (*models.RunReport, error) {
	op := e.operation
	startTime := time.Now()
	report := &models.RunReport{
		RunID:      op.ID,
		SourcePath: op.SourcePath,
		DestPath:   op.DestPath,
		Mode:       op.DuplicateMode,
		Transfer:   op.Transfer,
		DryRun:     op.DryRun,
		StartTime:  startTime,
		Status:     models.StatusSuccess,
	}

	e.logSessionHeader(ctx)

	r, err := e.prepare(ctx, report)
	if err == nil {
		err = e.process(ctx, r)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(startTime)

	switch {
	case errors.Is(err, models.ErrInteractiveCancelled), errors.Is(err, context.Canceled), ctx.Err() != nil:
		report.Status = models.StatusCancelled
	case err != nil:
		report.Status = models.StatusFailed
	case report.Stats.FilesErrored > 0 || len(report.Errors) > 0:
		report.Status = models.StatusPartial
	}

	e.logSessionFooter(ctx, report, err)
	return report, err
}

// prepare builds the catalog and wires the per-file pipeline
func (e *Engine) prepare(ctx context.Context, report *models.RunReport) (*run, error) {
	op := e.operation

	filter, err := NewFilter(op.Extensions, op.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	lay := layout.New(op.DestPath, op.RedirectDir)
	hasher := fingerprint.NewHasher(e.backend, op.BufferSize)

	ignored := make(map[string]struct{}, len(e.opts.IgnorePaths))
	for _, p := range e.opts.IgnorePaths {
		ignored[filepath.Clean(p)] = struct{}{}
	}

	cat, err := catalog.Build(ctx, e.backend, hasher, lay.DestRoot, catalog.Options{
		Comprehensive: op.ComprehensiveCheck,
		Workers:       op.MaxWorkers,
		Skip: func(path string, isDir bool) bool {
			_, skip := ignored[path]
			return skip
		},
		Logger: e.logger,
		OnProgress: func(done int) {
			e.progress(Progress{Phase: PhaseCatalog, Done: done})
		},
	})
	if err != nil {
		return nil, err
	}

	st := cat.Stats()
	report.Stats.CatalogFiles = st.Files
	report.Stats.CatalogUniqueHashes = st.UniqueHashes
	report.Stats.CatalogDuplicates = st.DuplicateGroups
	report.Stats.CatalogScanErrors = st.ScanErrors
	for _, se := range cat.ScanErrors() {
		report.Errors = append(report.Errors, models.RunError{
			FilePath:  se.Path,
			Operation: "scan",
			Error:     se.Error(),
			Timestamp: time.Now(),
		})
	}

	allocator := naming.NewAllocator(cat, e.backend)
	dater := metadata.NewDater(e.opts.Extractor, e.backend)
	matcher := keyword.NewMatcher(append([]string{op.DuplicateKeyword}, op.ExtraKeywords...)...)

	return &run{
		report:     report,
		layout:     lay,
		catalog:    cat,
		hasher:     hasher,
		dater:      dater,
		filter:     filter,
		classifier: conflict.NewClassifier(cat),
		resolver: resolve.NewResolver(
			resolve.Config{Mode: op.DuplicateMode, Keyword: op.DuplicateKeyword, Layout: lay},
			matcher, dater, allocator, e.opts.Prompter, e.logger,
		),
		executor: executor.New(storage.Throttled(e.backend, ratelimit.NewLimiter(op.BandwidthLimit)), cat, executor.Options{
			Transfer: op.Transfer,
			DryRun:   op.DryRun,
			Logger:   e.logger,
			Releaser: allocator,
		}),
	}, nil
}

// process collects the source files, then handles them one at a time
func (e *Engine) process(ctx context.Context, r *run) error {
	files, err := e.collect(ctx, r)
	if err != nil {
		return err
	}

	e.logger.Info(ctx, "Source scanned", logging.Fields{
		"scanned":  r.report.Stats.SourceFilesScanned,
		"matched":  len(files),
		"filtered": r.report.Stats.FilesFiltered,
	})

	for _, info := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processFile(ctx, r, info); err != nil {
			return err
		}

		r.processed++
		e.progress(Progress{Phase: PhaseOrganize, Done: r.processed, Total: len(files), Path: info.Path})
		if r.processed%e.opts.ProgressEvery == 0 {
			e.logger.Info(ctx, fmt.Sprintf("Processed %d files", r.processed), logging.Fields{
				"processed": r.processed,
				"total":     len(files),
			})
		}
	}

	return nil
}

// collect walks the source and keeps the files that pass the name filters
// Collecting first keeps moves out of the tree being walked
func (e *Engine) collect(ctx context.Context, r *run) ([]storage.FileInfo, error) {
	root := filepath.Clean(e.operation.SourcePath)
	var files []storage.FileInfo

	err := e.backend.Walk(ctx, root, func(info storage.FileInfo, err error) error {
		if err != nil {
			r.report.Errors = append(r.report.Errors, models.RunError{
				FilePath:  info.Path,
				Operation: "scan",
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
			e.logger.Warn(ctx, "Cannot read source entry", logging.Fields{
				"path":  info.Path,
				"error": err.Error(),
			})
			return nil
		}

		if info.Path == root {
			return nil
		}

		if info.IsDir {
			// The destination and redirect trees are never sources
			if layout.IsWithin(r.layout.DestRoot, info.Path) ||
				(r.layout.RedirectRoot != "" && layout.IsWithin(r.layout.RedirectRoot, info.Path)) ||
				r.filter.Excluded(info.RelativePath, true) {
				return storage.SkipDir
			}
			return nil
		}

		r.report.Stats.SourceFilesScanned++
		if !r.filter.AcceptsExtension(info.Path) || r.filter.Excluded(info.RelativePath, false) {
			r.report.Stats.FilesFiltered++
			e.logger.Debug(ctx, "File filtered", logging.Fields{"path": info.Path})
			return nil
		}

		files = append(files, info)
		e.progress(Progress{Phase: PhaseScan, Done: len(files), Path: info.Path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	return files, nil
}

// processFile dates, fingerprints, classifies, resolves and applies one file
// Only run-terminating errors are returned
func (e *Engine) processFile(ctx context.Context, r *run, info storage.FileInfo) error {
	op := e.operation

	date, err := r.dater.Lookup(ctx, info.Path)
	if err != nil {
		return e.fail(ctx, r, info.Path, models.ConflictNone, "", "cannot determine date", err)
	}
	if !op.ExifPolicy.Accepts(date.FromMetadata) {
		r.report.Stats.FilesFiltered++
		e.logger.Debug(ctx, "File filtered by metadata policy", logging.Fields{
			"path":          info.Path,
			"policy":        string(op.ExifPolicy),
			"has_exif_date": date.FromMetadata,
		})
		return nil
	}
	r.report.Stats.FilesMatched++

	in := models.Incoming{
		Path:             info.Path,
		Size:             info.Size,
		ModTime:          info.ModTime,
		Date:             date.Time,
		DateFromMetadata: date.FromMetadata,
	}

	if op.ComprehensiveCheck {
		fp, err := r.hasher.Sum(ctx, info.Path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return e.fail(ctx, r, info.Path, models.ConflictNone, "", "cannot fingerprint file", err)
		}
		in.Fingerprint = fp
	}

	c := r.classifier.Classify(in, r.layout.TargetDir(in.Date))
	r.report.Stats.CountConflict(c.Kind)
	if c.IsConflict() {
		e.logger.Info(ctx, "Conflict detected", logging.Fields{
			"incoming": in.Path,
			"kind":     string(c.Kind),
			"existing": len(c.Existing),
		})
	}

	batch, err := r.resolver.Resolve(ctx, c)
	if err != nil {
		if errors.Is(err, models.ErrInteractiveCancelled) {
			// The file under the prompt is skipped before the run stops
			e.emit(context.WithoutCancel(ctx), r, models.Event{
				RunID:        op.ID,
				Timestamp:    time.Now(),
				IncomingPath: in.Path,
				Outcome:      models.OutcomeSkipped,
				Reason:       "interactive prompt cancelled",
				ConflictKind: c.Kind,
				DryRun:       op.DryRun,
			})
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		return e.fail(ctx, r, in.Path, c.Kind, "", "cannot resolve conflict", err)
	}

	for _, res := range r.executor.Apply(ctx, batch, in) {
		ev := models.Event{
			RunID:        op.ID,
			Timestamp:    time.Now(),
			IncomingPath: in.Path,
			Outcome:      res.Outcome(),
			Reason:       res.Action.Reason,
			ConflictKind: c.Kind,
			DryRun:       op.DryRun,
			Err:          res.Err,
		}
		if res.Action.Kind == models.ActionDemote {
			ev.SubjectPath = res.Action.Source
		}
		if res.Err == nil && res.Action.Kind != models.ActionSkip {
			ev.FinalPath = res.Action.Target
		}
		if res.Err != nil {
			r.report.Errors = append(r.report.Errors, models.RunError{
				FilePath:  res.Action.Source,
				Operation: res.Action.Kind,
				Error:     res.Err.Error(),
				Timestamp: ev.Timestamp,
			})
		} else if res.Action.AffectsIncoming() {
			r.report.Stats.BytesTransferred += res.Bytes
		}
		e.emit(ctx, r, ev)
	}

	return nil
}

// fail records a per-file failure that happened before any action
func (e *Engine) fail(ctx context.Context, r *run, path string, kind models.ConflictKind, op models.ActionKind, reason string, err error) error {
	now := time.Now()
	r.report.Errors = append(r.report.Errors, models.RunError{
		FilePath:  path,
		Operation: op,
		Error:     err.Error(),
		Timestamp: now,
	})
	e.emit(ctx, r, models.Event{
		RunID:        e.operation.ID,
		Timestamp:    now,
		IncomingPath: path,
		Outcome:      models.OutcomeFailed,
		Reason:       reason,
		ConflictKind: kind,
		DryRun:       e.operation.DryRun,
		Err:          err,
	})
	return nil
}

func (e *Engine) emit(ctx context.Context, r *run, ev models.Event) {
	r.report.Stats.Count(ev)
	r.report.Events = append(r.report.Events, ev)
	if e.opts.Sink == nil {
		return
	}
	if err := e.opts.Sink.Emit(ctx, ev); err != nil {
		e.logger.Warn(ctx, "Event sink failed", logging.Fields{
			"incoming": ev.IncomingPath,
			"error":    err.Error(),
		})
	}
}

func (e *Engine) progress(p Progress) {
	if e.opts.OnProgress != nil {
		e.opts.OnProgress(p)
	}
}

func (e *Engine) logSessionHeader(ctx context.Context) {
	op := e.operation
	fields := logging.Fields{
		"run_id":              op.ID,
		"source":              op.SourcePath,
		"dest":                op.DestPath,
		"transfer":            string(op.Transfer),
		"duplicate_mode":      string(op.DuplicateMode),
		"comprehensive_check": op.ComprehensiveCheck,
		"exif_policy":         string(op.ExifPolicy),
		"duplicate_keyword":   op.DuplicateKeyword,
		"dry_run":             op.DryRun,
		"workers":             op.MaxWorkers,
	}
	if e.opts.Version != "" {
		fields["version"] = e.opts.Version
	}
	if len(op.Extensions) > 0 {
		fields["extensions"] = strings.Join(op.Extensions, ",")
	}
	if op.BandwidthLimit > 0 {
		fields["bandwidth_limit"] = op.BandwidthLimit
	}
	if op.DuplicateMode == models.ModeRedirect {
		fields["redirect_dir"] = layout.RedirectRoot(op.DestPath, op.RedirectDir)
	}
	e.logger.Info(ctx, "Session started", fields)
}

func (e *Engine) logSessionFooter(ctx context.Context, report *models.RunReport, err error) {
	fields := logging.Fields{
		"run_id":      report.RunID,
		"status":      string(report.Status),
		"duration":    report.Duration.String(),
		"scanned":     report.Stats.SourceFilesScanned,
		"matched":     report.Stats.FilesMatched,
		"placed":      report.Stats.FilesPlaced,
		"skipped":     report.Stats.FilesSkipped,
		"renamed":     report.Stats.FilesRenamed,
		"overwritten": report.Stats.FilesOverwritten,
		"redirected":  report.Stats.FilesRedirected,
		"demoted":     report.Stats.FilesDemoted,
		"errors":      report.Stats.FilesErrored,
	}
	if err != nil {
		e.logger.Error(ctx, "Session ended", err, fields)
		return
	}
	e.logger.Info(ctx, "Session finished", fields)
}
