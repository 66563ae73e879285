package models

import (
	"path/filepath"
	"time"
)

// ConflictKind categorizes how an incoming file collides with the destination
type ConflictKind string

const (
	// ConflictNone means nothing in the destination collides
	ConflictNone ConflictKind = "none"
	// ConflictFilenameOnly means a file with the same name exists in the target folder
	ConflictFilenameOnly ConflictKind = "filename"
	// ConflictContentOnly means identical content exists somewhere in the destination
	ConflictContentOnly ConflictKind = "content"
	// ConflictBoth means both a same-name file and identical content were found
	ConflictBoth ConflictKind = "both"
)

// Incoming describes the file being ingested
type Incoming struct {
	// Path is the absolute source path
	Path        string
	Fingerprint Fingerprint
	Size        int64
	ModTime     time.Time
	// Date is the creation date used for the target folder and scoring
	Date time.Time
	// DateFromMetadata is true when Date came from embedded metadata
	DateFromMetadata bool
}

// Name returns the base name of the incoming file
func (in Incoming) Name() string {
	return filepath.Base(in.Path)
}

// Conflict is the transient result of classifying one incoming file
type Conflict struct {
	Kind     ConflictKind
	Incoming Incoming
	// Existing lists the implicated records: the name occupant first, then
	// content duplicates ordered by path
	Existing []FileRecord
	// TargetDir is the date folder the incoming file belongs to
	TargetDir string
	// TargetPath is the canonical destination path
	TargetPath string
}

// IsConflict reports whether the conflict requires resolution
func (c *Conflict) IsConflict() bool {
	return c.Kind != ConflictNone
}

// Occupant returns the record holding the canonical target path, if any
func (c *Conflict) Occupant() (FileRecord, bool) {
	for _, r := range c.Existing {
		if r.Path == c.TargetPath {
			return r, true
		}
	}
	return FileRecord{}, false
}

// HasContentMatch reports whether any implicated record has the incoming content
func (c *Conflict) HasContentMatch() bool {
	for _, r := range c.Existing {
		if r.SameContent(c.Incoming.Fingerprint) {
			return true
		}
	}
	return false
}

// Decision is the answer of an interactive prompt
type Decision string

const (
	DecisionSkip      Decision = "skip"
	DecisionOverwrite Decision = "overwrite"
	DecisionRename    Decision = "rename"
	DecisionRedirect  Decision = "redirect"
)
