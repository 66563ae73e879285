package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// Run is a journaled run
type Run struct {
	ID         string
	Source     string
	Dest       string
	Mode       models.DuplicateMode
	Transfer   models.TransferMode
	DryRun     bool
	Status     models.RunStatus
	StartedAt  time.Time
	FinishedAt time.Time

	Placed      int
	Skipped     int
	Renamed     int
	Overwritten int
	Redirected  int
	Demoted     int
	Errored     int
}

// Entry is a journaled event
type Entry struct {
	ID           string
	RunID        string
	Timestamp    time.Time
	IncomingPath string
	Outcome      models.Outcome
	Reason       string
	FinalPath    string
	SubjectPath  string
	ConflictKind models.ConflictKind
	DryRun       bool
	Error        string
}

// Runs lists the most recent runs first; limit <= 0 lists all
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, source, dest, mode, transfer, dry_run, status, started_at, finished_at,
			placed, skipped, renamed, overwritten, redirected, demoted, errored
		FROM runs
		ORDER BY started_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r              Run
			mode, transfer string
			dryRun         int
			status         sql.NullString
			started        int64
			finished       sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Dest, &mode, &transfer, &dryRun, &status, &started, &finished,
			&r.Placed, &r.Skipped, &r.Renamed, &r.Overwritten, &r.Redirected, &r.Demoted, &r.Errored); err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		r.Mode = models.DuplicateMode(mode)
		r.Transfer = models.TransferMode(transfer)
		r.DryRun = dryRun != 0
		r.Status = models.RunStatus(status.String)
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Events lists the events of a run in emission order
func (j *Journal) Events(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, ts, incoming, outcome, reason, final_path, subject_path, conflict_kind, dry_run, error
		FROM events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                    Entry
			ts                                   int64
			outcome                              string
			reason, final, subject, kind, errMsg sql.NullString
			dryRun                               int
		)
		if err := rows.Scan(&e.ID, &e.RunID, &ts, &e.IncomingPath, &outcome, &reason, &final, &subject, &kind, &dryRun, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Outcome = models.Outcome(outcome)
		e.Reason = reason.String
		e.FinalPath = final.String
		e.SubjectPath = subject.String
		e.ConflictKind = models.ConflictKind(kind.String)
		e.DryRun = dryRun != 0
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestRun returns the most recent run, if any
func (j *Journal) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := j.Runs(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
