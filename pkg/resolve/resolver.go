// Package resolve turns a conflict into the filesystem actions that settle it
//
// Among the incoming file and the implicated destination records, the one
// most likely to be the original becomes the master (see keyword.Score).
// The master keeps or takes the canonical path; every other candidate is
// handled according to the duplicate mode.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sdejongh/orgphoto/pkg/keyword"
	"github.com/sdejongh/orgphoto/pkg/layout"
	"github.com/sdejongh/orgphoto/pkg/logging"
	"github.com/sdejongh/orgphoto/pkg/models"
)

// Dater dates existing records the same way incoming files are dated
type Dater interface {
	Date(ctx context.Context, path string) (time.Time, error)
}

// Prompter asks the user what to do with one implicated file
// When the incoming file is the master, subject is the existing record at
// stake; otherwise subject is the protected master
type Prompter interface {
	Resolve(ctx context.Context, c models.Conflict, subject models.FileRecord) (models.Decision, error)
}

// Allocator hands out free keyword-suffixed paths
type Allocator interface {
	AllocateFor(ctx context.Context, dir, name, keyword string) (string, error)
}

// Config holds the resolver settings of a run
type Config struct {
	Mode    models.DuplicateMode
	Keyword string
	Layout  layout.Layout
}

// Resolver applies master selection and the duplicate mode table
type Resolver struct {
	config    Config
	matcher   keyword.Matcher
	dater     Dater
	allocator Allocator
	prompter  Prompter
	logger    logging.Logger
}

// NewResolver creates a resolver
// prompter is only consulted in interactive mode
func NewResolver(config Config, matcher keyword.Matcher, dater Dater, allocator Allocator, prompter Prompter, logger logging.Logger) *Resolver {
	return &Resolver{
		config:    config,
		matcher:   matcher,
		dater:     dater,
		allocator: allocator,
		prompter:  prompter,
		logger:    logger,
	}
}

// Selection is the outcome of master selection
type Selection struct {
	// Master is nil when the incoming file is the master
	Master *models.FileRecord
	Scores map[string]models.Score
}

// IncomingIsMaster reports whether the incoming file won
func (s Selection) IncomingIsMaster() bool {
	return s.Master == nil
}

// SelectMaster scores the incoming file and every implicated record
// Ties go to the existing record, then to the smallest path
func (r *Resolver) SelectMaster(ctx context.Context, c models.Conflict) Selection {
	in := keyword.NewCandidate(r.matcher, c.Incoming.Path, c.Incoming.Date, false)
	best := keyword.Score(in)
	sel := Selection{Scores: map[string]models.Score{c.Incoming.Path: best}}

	existing := append([]models.FileRecord(nil), c.Existing...)
	sort.Slice(existing, func(i, j int) bool { return existing[i].Path < existing[j].Path })

	for i := range existing {
		rec := existing[i]
		s := keyword.Score(keyword.NewCandidate(r.matcher, rec.Path, r.dateOf(ctx, rec), true))
		sel.Scores[rec.Path] = s
		if s.Less(best) || (s.Equal(best) && sel.Master == nil) {
			best = s
			sel.Master = &existing[i]
		}
	}

	return sel
}

func (r *Resolver) dateOf(ctx context.Context, rec models.FileRecord) time.Time {
	if r.dater != nil {
		if t, err := r.dater.Date(ctx, rec.Path); err == nil {
			return t
		} else if r.logger != nil {
			r.logger.Debug(ctx, "Falling back to catalog modification time", logging.Fields{
				"path":  rec.Path,
				"error": err.Error(),
			})
		}
	}
	return rec.ModTime
}

// Resolve returns the ordered action batch for a conflict: every demotion
// first, then exactly one action for the incoming file
func (r *Resolver) Resolve(ctx context.Context, c models.Conflict) ([]models.Action, error) {
	if !c.IsConflict() {
		return []models.Action{place(c, "no conflict")}, nil
	}

	sel := r.SelectMaster(ctx, c)

	if r.logger != nil {
		fields := logging.Fields{
			"incoming": c.Incoming.Path,
			"kind":     string(c.Kind),
			"mode":     string(r.config.Mode),
		}
		if sel.IncomingIsMaster() {
			fields["master"] = c.Incoming.Path
		} else {
			fields["master"] = sel.Master.Path
		}
		r.logger.Info(ctx, "Master selected", fields)
	}

	var (
		batch []models.Action
		err   error
	)
	if sel.IncomingIsMaster() {
		batch, err = r.incomingWins(ctx, c)
	} else {
		batch, err = r.existingWins(ctx, c, *sel.Master)
	}
	if err != nil {
		return nil, err
	}
	return models.OrderActions(batch), nil
}

// incomingWins demotes the implicated records and places the incoming file
func (r *Resolver) incomingWins(ctx context.Context, c models.Conflict) ([]models.Action, error) {
	var batch []models.Action
	incoming := place(c, "incoming file is the best master candidate")

	for _, rec := range implicated(c) {
		if r.config.Layout.InRedirectTree(rec.Path) {
			// Already a redirected duplicate
			continue
		}
		isOccupant := rec.Path == c.TargetPath

		switch r.config.Mode {
		case models.ModeSkip, models.ModeOverwrite, models.ModeRename:
			a, err := r.demoteInPlace(ctx, rec, "superseded by a better master")
			if err != nil {
				return nil, err
			}
			batch = append(batch, a)

		case models.ModeContent:
			if !rec.SameContent(c.Incoming.Fingerprint) && !isOccupant {
				continue
			}
			a, err := r.demoteInPlace(ctx, rec, "superseded by a better master")
			if err != nil {
				return nil, err
			}
			batch = append(batch, a)

		case models.ModeRedirect:
			a, err := r.demoteToRedirect(ctx, rec, "superseded by a better master")
			if err != nil {
				return nil, err
			}
			batch = append(batch, a)

		case models.ModeInteractive:
			decision, err := r.ask(ctx, c, rec)
			if err != nil {
				return nil, err
			}
			switch decision {
			case models.DecisionSkip, models.DecisionOverwrite:
				if !isOccupant {
					// Only the occupant of the target path can be overwritten
					r.keep(ctx, c, rec, decision)
					continue
				}
				if decision == models.DecisionSkip {
					// The record keeps the canonical path
					renamed, err := r.rename(ctx, c, "canonical name kept by user choice")
					if err != nil {
						return nil, err
					}
					incoming = renamed
				} else {
					occupant := rec
					incoming = models.Action{
						Kind:   models.ActionOverwrite,
						Source: c.Incoming.Path,
						Target: c.TargetPath,
						Record: &occupant,
						Reason: "overwrite chosen by user",
					}
				}
			case models.DecisionRename:
				a, err := r.demoteInPlace(ctx, rec, "rename chosen by user")
				if err != nil {
					return nil, err
				}
				batch = append(batch, a)
			case models.DecisionRedirect:
				a, err := r.demoteToRedirect(ctx, rec, "redirect chosen by user")
				if err != nil {
					return nil, err
				}
				batch = append(batch, a)
			default:
				return nil, fmt.Errorf("unknown decision %q", decision)
			}

		default:
			return nil, fmt.Errorf("unsupported duplicate mode %q", r.config.Mode)
		}
	}

	return append(batch, incoming), nil
}

// existingWins protects the master and decides the incoming file's fate
func (r *Resolver) existingWins(ctx context.Context, c models.Conflict, master models.FileRecord) ([]models.Action, error) {
	var a models.Action
	var err error

	switch r.config.Mode {
	case models.ModeSkip:
		a = skip(c, fmt.Sprintf("%s is the master", master.Path))

	case models.ModeOverwrite, models.ModeRename:
		a, err = r.rename(ctx, c, fmt.Sprintf("%s is the master", master.Path))

	case models.ModeContent:
		if c.HasContentMatch() {
			a = skip(c, "identical content already in destination")
		} else {
			a, err = r.rename(ctx, c, "same name with different content")
		}

	case models.ModeRedirect:
		a, err = r.redirect(ctx, c, fmt.Sprintf("%s is the master", master.Path))

	case models.ModeInteractive:
		var decision models.Decision
		decision, err = r.ask(ctx, c, master)
		if err != nil {
			return nil, err
		}
		switch decision {
		case models.DecisionSkip:
			a = skip(c, "skip chosen by user")
		case models.DecisionOverwrite:
			// The master is never overwritten
			a, err = r.rename(ctx, c, "master is protected from overwrite")
		case models.DecisionRename:
			a, err = r.rename(ctx, c, "rename chosen by user")
		case models.DecisionRedirect:
			a, err = r.redirect(ctx, c, "redirect chosen by user")
		default:
			err = fmt.Errorf("unknown decision %q", decision)
		}

	default:
		err = fmt.Errorf("unsupported duplicate mode %q", r.config.Mode)
	}

	if err != nil {
		return nil, err
	}
	return []models.Action{a}, nil
}

// implicated returns the records of a conflict with the target path
// occupant first and the rest ordered by path, so the occupant's answer
// is the one that decides the incoming action
func implicated(c models.Conflict) []models.FileRecord {
	out := append([]models.FileRecord(nil), c.Existing...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Path == c.TargetPath, out[j].Path == c.TargetPath
		if oi != oj {
			return oi
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// keep records an answer that leaves a record where it is
func (r *Resolver) keep(ctx context.Context, c models.Conflict, rec models.FileRecord, decision models.Decision) {
	if r.logger == nil {
		return
	}
	reason := "kept in place by user choice"
	if decision == models.DecisionOverwrite {
		reason = "not at the target path, nothing to overwrite"
	}
	r.logger.Info(ctx, "Record left in place", logging.Fields{
		"incoming": c.Incoming.Path,
		"record":   rec.Path,
		"decision": string(decision),
		"reason":   reason,
	})
}

func (r *Resolver) ask(ctx context.Context, c models.Conflict, subject models.FileRecord) (models.Decision, error) {
	if r.prompter == nil {
		return "", fmt.Errorf("interactive mode requires a prompter")
	}
	return r.prompter.Resolve(ctx, c, subject)
}

func place(c models.Conflict, reason string) models.Action {
	return models.Action{
		Kind:   models.ActionPlaceAsMaster,
		Source: c.Incoming.Path,
		Target: c.TargetPath,
		Reason: reason,
	}
}

func skip(c models.Conflict, reason string) models.Action {
	return models.Action{
		Kind:   models.ActionSkip,
		Source: c.Incoming.Path,
		Reason: reason,
	}
}

// rename places the incoming file under a keyword-suffixed name in its date folder
func (r *Resolver) rename(ctx context.Context, c models.Conflict, reason string) (models.Action, error) {
	target, err := r.allocator.AllocateFor(ctx, c.TargetDir, c.Incoming.Name(), r.config.Keyword)
	if err != nil {
		return models.Action{}, err
	}
	return models.Action{
		Kind:   models.ActionRename,
		Source: c.Incoming.Path,
		Target: target,
		Reason: reason,
	}, nil
}

// redirect places the incoming file in the redirect tree under its date folder
func (r *Resolver) redirect(ctx context.Context, c models.Conflict, reason string) (models.Action, error) {
	dir := r.config.Layout.RedirectDirFor(c.TargetDir)
	target, err := r.allocator.AllocateFor(ctx, dir, c.Incoming.Name(), r.config.Keyword)
	if err != nil {
		return models.Action{}, err
	}
	return models.Action{
		Kind:   models.ActionRedirect,
		Source: c.Incoming.Path,
		Target: target,
		Reason: reason,
	}, nil
}

// demoteInPlace renames a record with the keyword inside its own folder
func (r *Resolver) demoteInPlace(ctx context.Context, rec models.FileRecord, reason string) (models.Action, error) {
	return r.demote(ctx, rec, rec.Dir(), reason)
}

// demoteToRedirect moves a record into the redirect tree, mirroring its folder
func (r *Resolver) demoteToRedirect(ctx context.Context, rec models.FileRecord, reason string) (models.Action, error) {
	return r.demote(ctx, rec, r.config.Layout.RedirectDirFor(rec.Dir()), reason)
}

func (r *Resolver) demote(ctx context.Context, rec models.FileRecord, dir, reason string) (models.Action, error) {
	target, err := r.allocator.AllocateFor(ctx, dir, rec.Name(), r.config.Keyword)
	if err != nil {
		return models.Action{}, err
	}
	return models.Action{
		Kind:   models.ActionDemote,
		Source: rec.Path,
		Target: target,
		Record: &rec,
		Reason: reason,
	}, nil
}
