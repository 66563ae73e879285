// Package executor applies resolved action batches to the destination
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sdejongh/orgphoto/pkg/catalog"
	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

// ErrTargetOccupied is the cause of a placement whose target is still taken
var ErrTargetOccupied = errors.New("target path is occupied")

// Releaser gives back names that were allocated for failed actions
type Releaser interface {
	Release(path string)
}

// Options configures an executor
type Options struct {
	Transfer models.TransferMode
	DryRun   bool
	Logger   logging.Logger
	// Releaser is optional
	Releaser Releaser
}

// Result is the outcome of one action
type Result struct {
	Action models.Action
	// Record is the catalog record created by the action, if any
	Record   *models.FileRecord
	Bytes    int64
	Duration time.Duration
	Err      error
}

// Failed reports whether the action failed
func (r Result) Failed() bool {
	return r.Err != nil
}

// Outcome maps the result to an event outcome
func (r Result) Outcome() models.Outcome {
	if r.Err != nil {
		return models.OutcomeFailed
	}
	return models.OutcomeFor(r.Action.Kind)
}

// Executor mutates the destination and keeps the catalog in step with it
type Executor struct {
	backend  storage.Backend
	catalog  *catalog.Catalog
	transfer models.TransferMode
	dryRun   bool
	logger   logging.Logger
	releaser Releaser
}

// New creates an executor
func New(backend storage.Backend, cat *catalog.Catalog, opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	transfer := opts.Transfer
	if transfer == "" {
		transfer = models.TransferCopy
	}
	return &Executor{
		backend:  backend,
		catalog:  cat,
		transfer: transfer,
		dryRun:   opts.DryRun,
		logger:   logger,
		releaser: opts.Releaser,
	}
}

// DryRun reports whether the executor only simulates mutations
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Apply runs the batch in order: demotions first, then the incoming action
// A failed action does not stop the others; the catalog is only updated for
// actions that succeeded
func (e *Executor) Apply(ctx context.Context, batch []models.Action, in models.Incoming) []Result {
	ordered := models.OrderActions(batch)
	results := make([]Result, 0, len(ordered))

	for _, action := range ordered {
		select {
		case <-ctx.Done():
			results = append(results, Result{Action: action, Err: ctx.Err()})
			continue
		default:
		}

		start := time.Now()
		rec, bytes, err := e.apply(ctx, action, in)
		result := Result{
			Action:   action,
			Record:   rec,
			Bytes:    bytes,
			Duration: time.Since(start),
		}

		if err != nil {
			result.Err = &models.PlacementError{
				Action: action.Kind,
				Source: action.Source,
				Target: action.Target,
				Err:    err,
			}
			if e.releaser != nil && action.Target != "" {
				e.releaser.Release(action.Target)
			}
			e.logger.Error(ctx, "Action failed", result.Err, logging.Fields{
				"action":  string(action.Kind),
				"source":  action.Source,
				"target":  action.Target,
				"dry_run": e.dryRun,
			})
		} else {
			e.logger.Info(ctx, "Action applied", logging.Fields{
				"action":  string(action.Kind),
				"source":  action.Source,
				"target":  action.Target,
				"reason":  action.Reason,
				"dry_run": e.dryRun,
			})
		}

		results = append(results, result)
	}

	return results
}

func (e *Executor) apply(ctx context.Context, action models.Action, in models.Incoming) (*models.FileRecord, int64, error) {
	switch action.Kind {
	case models.ActionSkip:
		return nil, 0, nil

	case models.ActionDemote:
		return e.demote(ctx, action)

	case models.ActionPlaceAsMaster, models.ActionRename, models.ActionRedirect:
		if e.catalog.Has(action.Target) {
			return nil, 0, fmt.Errorf("%s: %w", action.Target, ErrTargetOccupied)
		}
		if !e.dryRun {
			if err := e.place(ctx, action.Source, action.Target); err != nil {
				return nil, 0, err
			}
		}
		rec := e.incomingRecord(in, action.Target)
		e.catalog.Insert(rec)
		return &rec, in.Size, nil

	case models.ActionOverwrite:
		if !e.dryRun {
			if err := storage.Overwrite(ctx, e.backend, action.Source, action.Target); err != nil {
				return nil, 0, err
			}
			if e.transfer == models.TransferMove {
				if err := e.backend.Delete(ctx, action.Source); err != nil {
					return nil, 0, fmt.Errorf("failed to remove source after overwrite: %w", err)
				}
			}
		}
		rec := e.incomingRecord(in, action.Target)
		e.catalog.Insert(rec)
		return &rec, in.Size, nil

	default:
		return nil, 0, fmt.Errorf("unknown action %q", action.Kind)
	}
}

func (e *Executor) demote(ctx context.Context, action models.Action) (*models.FileRecord, int64, error) {
	if !e.catalog.Has(action.Source) {
		return nil, 0, fmt.Errorf("%s is no longer in the catalog: %w", action.Source, os.ErrNotExist)
	}
	if e.catalog.Has(action.Target) {
		return nil, 0, fmt.Errorf("%s: %w", action.Target, ErrTargetOccupied)
	}
	if !e.dryRun {
		if err := storage.Move(ctx, e.backend, action.Source, action.Target); err != nil {
			return nil, 0, err
		}
	}
	moved, _ := e.catalog.Move(action.Source, action.Target)
	return &moved, 0, nil
}

// place copies or moves an incoming file per the transfer mode
func (e *Executor) place(ctx context.Context, src, dst string) error {
	if e.transfer == models.TransferMove {
		return storage.Move(ctx, e.backend, src, dst)
	}
	return storage.Copy(ctx, e.backend, src, dst)
}

// incomingRecord describes the placed file; filename-only catalogs keep
// fingerprints out so content never matches across names
func (e *Executor) incomingRecord(in models.Incoming, path string) models.FileRecord {
	rec := models.FileRecord{
		Path:    path,
		Size:    in.Size,
		ModTime: in.ModTime,
	}
	if e.catalog.Comprehensive() {
		rec.Fingerprint = in.Fingerprint
	}
	return rec
}
