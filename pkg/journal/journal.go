// Package journal records organize runs and their events in SQLite
package journal

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Journal is an append-only store of runs and events
// It is safe for concurrent use
type Journal struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	entropy io.Reader
}

// Open opens (creating if needed) the journal database at path
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Pragmas in the connection string apply to all connections
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(path, 0600)

	return &Journal{
		db:      db,
		path:    path,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Path returns the database file path
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS runs (
		  id           TEXT PRIMARY KEY,
		  source       TEXT NOT NULL,
		  dest         TEXT NOT NULL,
		  mode         TEXT NOT NULL,
		  transfer     TEXT NOT NULL,
		  dry_run      INTEGER NOT NULL,
		  status       TEXT,
		  started_at   INTEGER NOT NULL,
		  finished_at  INTEGER,
		  placed       INTEGER NOT NULL DEFAULT 0,
		  skipped      INTEGER NOT NULL DEFAULT 0,
		  renamed      INTEGER NOT NULL DEFAULT 0,
		  overwritten  INTEGER NOT NULL DEFAULT 0,
		  redirected   INTEGER NOT NULL DEFAULT 0,
		  demoted      INTEGER NOT NULL DEFAULT 0,
		  errored      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS events (
		  id            TEXT PRIMARY KEY,
		  run_id        TEXT NOT NULL,
		  ts            INTEGER NOT NULL,
		  incoming      TEXT NOT NULL,
		  outcome       TEXT NOT NULL,
		  reason        TEXT,
		  final_path    TEXT,
		  subject_path  TEXT,
		  conflict_kind TEXT,
		  dry_run       INTEGER NOT NULL,
		  error         TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id, id);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// newID returns a ULID; the monotonic entropy source needs the lock
func (j *Journal) newID(t time.Time) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), j.entropy).String()
}

// StartRun records the beginning of a run
func (j *Journal) StartRun(ctx context.Context, op *models.RunOperation) error {
	started := op.CreatedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, dest, mode, transfer, dry_run, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, op.ID, op.SourcePath, op.DestPath, string(op.DuplicateMode), string(op.Transfer),
		boolToInt(op.DryRun), started.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// Emit appends an event; it satisfies the organize event sink
func (j *Journal) Emit(ctx context.Context, ev models.Event) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (id, run_id, ts, incoming, outcome, reason, final_path, subject_path, conflict_kind, dry_run, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.newID(ts), ev.RunID, ts.UnixMilli(), ev.IncomingPath, string(ev.Outcome),
		toNullString(ev.Reason), toNullString(ev.FinalPath), toNullString(ev.SubjectPath),
		toNullString(string(ev.ConflictKind)), boolToInt(ev.DryRun), errText)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run
func (j *Journal) FinishRun(ctx context.Context, report *models.RunReport) error {
	finished := report.EndTime
	if finished.IsZero() {
		finished = time.Now()
	}
	st := report.Stats
	_, err := j.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?,
			placed = ?, skipped = ?, renamed = ?, overwritten = ?,
			redirected = ?, demoted = ?, errored = ?
		WHERE id = ?
	`, string(report.Status), finished.UnixMilli(),
		st.FilesPlaced, st.FilesSkipped, st.FilesRenamed, st.FilesOverwritten,
		st.FilesRedirected, st.FilesDemoted, st.FilesErrored, report.RunID)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	return nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
