package models

import (
	"time"
)

// RunReport represents the results of an organize run
type RunReport struct {
	// Operation details
	RunID      string
	SourcePath string
	DestPath   string
	Mode       DuplicateMode
	Transfer   TransferMode
	DryRun     bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// Events emitted during the run, in order
	Events []Event

	// Errors encountered
	Errors []RunError

	// Overall status
	Status RunStatus
}

// Statistics holds run metrics
type Statistics struct {
	// Destination catalog
	CatalogFiles        int
	CatalogUniqueHashes int
	CatalogDuplicates   int
	CatalogScanErrors   int

	// Source scan
	SourceFilesScanned int
	FilesMatched       int // passed extension, exclude and exif filters
	FilesFiltered      int

	// Outcomes
	FilesPlaced      int
	FilesSkipped     int
	FilesRenamed     int
	FilesOverwritten int
	FilesRedirected  int
	FilesDemoted     int
	FilesErrored     int

	// Conflicts by kind
	ConflictsFilename int
	ConflictsContent  int
	ConflictsBoth     int

	BytesTransferred int64
}

// Count updates the outcome counters for one event
func (s *Statistics) Count(ev Event) {
	switch ev.Outcome {
	case OutcomePlaced:
		s.FilesPlaced++
	case OutcomeSkipped:
		s.FilesSkipped++
	case OutcomeRenamed:
		s.FilesRenamed++
	case OutcomeOverwritten:
		s.FilesOverwritten++
	case OutcomeRedirected:
		s.FilesRedirected++
	case OutcomeDemotedOther:
		s.FilesDemoted++
	case OutcomeFailed:
		s.FilesErrored++
	}
}

// CountConflict updates the conflict counters
func (s *Statistics) CountConflict(kind ConflictKind) {
	switch kind {
	case ConflictFilenameOnly:
		s.ConflictsFilename++
	case ConflictContentOnly:
		s.ConflictsContent++
	case ConflictBoth:
		s.ConflictsBoth++
	}
}

// RunStatus represents the overall result
type RunStatus string

const (
	// StatusSuccess indicates all files were handled
	StatusSuccess RunStatus = "success"
	// StatusPartial indicates some files failed
	StatusPartial RunStatus = "partial"
	// StatusFailed indicates the run failed
	StatusFailed RunStatus = "failed"
	// StatusCancelled indicates the run was cancelled
	StatusCancelled RunStatus = "cancelled"
)

// RunError represents an error attributed to one file
type RunError struct {
	FilePath  string
	Operation ActionKind
	Error     string
	Timestamp time.Time
}

// ExitCode returns the appropriate exit code for the run status
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
