package models

import (
	"fmt"
	"strings"
	"time"
)

// DuplicateMode defines how conflicts are handled
type DuplicateMode string

const (
	// ModeSkip skips incoming files that lose master selection
	ModeSkip DuplicateMode = "skip"
	// ModeOverwrite behaves like rename: a master is never overwritten
	ModeOverwrite DuplicateMode = "overwrite"
	// ModeRename keeps every file, suffixing non-masters with the keyword
	ModeRename DuplicateMode = "rename"
	// ModeContent skips identical content and renames same-name different content
	ModeContent DuplicateMode = "content"
	// ModeInteractive asks the user for each conflict
	ModeInteractive DuplicateMode = "interactive"
	// ModeRedirect moves non-masters to the redirect directory
	ModeRedirect DuplicateMode = "redirect"
)

// DuplicateModes lists every supported mode
var DuplicateModes = []DuplicateMode{ModeSkip, ModeOverwrite, ModeRename, ModeContent, ModeInteractive, ModeRedirect}

// ParseDuplicateMode converts a user supplied string to a DuplicateMode
func ParseDuplicateMode(s string) (DuplicateMode, error) {
	m := DuplicateMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range DuplicateModes {
		if m == known {
			return m, nil
		}
	}
	return "", &ValidationError{
		Field:   "duplicate-handling",
		Message: fmt.Sprintf("invalid mode %q (valid: skip, overwrite, rename, content, interactive, redirect)", s),
	}
}

// TransferMode defines whether incoming files are moved or copied
type TransferMode string

const (
	TransferMove TransferMode = "move"
	TransferCopy TransferMode = "copy"
)

// ExifPolicy selects files by the presence of an embedded creation date
type ExifPolicy string

const (
	// ExifRequired processes only files with an embedded date
	ExifRequired ExifPolicy = "yes"
	// ExifFallback processes all files, falling back to the filesystem date
	ExifFallback ExifPolicy = "no"
	// ExifFilesystemOnly processes only files without an embedded date
	ExifFilesystemOnly ExifPolicy = "fs"
)

// Accepts reports whether a file with or without embedded date passes the policy
func (p ExifPolicy) Accepts(hasMetadata bool) bool {
	switch p {
	case ExifRequired:
		return hasMetadata
	case ExifFilesystemOnly:
		return !hasMetadata
	default:
		return true
	}
}

// RunOperation represents an organize run configuration
type RunOperation struct {
	ID                 string
	SourcePath         string
	DestPath           string
	Transfer           TransferMode
	DuplicateMode      DuplicateMode
	ComprehensiveCheck bool
	// RedirectDir is relative to DestPath unless absolute
	RedirectDir      string
	DuplicateKeyword string
	ExtraKeywords    []string
	ExifPolicy       ExifPolicy
	// Extensions are lower-case with a leading dot; empty means all files
	Extensions      []string
	ExcludePatterns []string
	DryRun          bool
	MaxWorkers      int
	BufferSize      int
	// BandwidthLimit is in bytes per second, 0 = unlimited
	BandwidthLimit int64
	CreatedAt      time.Time
}

// Validate checks if the operation configuration is valid
func (op *RunOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	if _, err := ParseDuplicateMode(string(op.DuplicateMode)); err != nil {
		return err
	}
	if op.Transfer != TransferMove && op.Transfer != TransferCopy {
		return &ValidationError{Field: "Transfer", Message: "must be move or copy"}
	}
	switch op.ExifPolicy {
	case ExifRequired, ExifFallback, ExifFilesystemOnly:
	default:
		return &ValidationError{Field: "ExifPolicy", Message: "must be yes, no or fs"}
	}
	if op.DuplicateKeyword == "" {
		return &ValidationError{Field: "DuplicateKeyword", Message: "duplicate keyword is required"}
	}
	if strings.ContainsAny(op.DuplicateKeyword, `/\`) {
		return &ValidationError{Field: "DuplicateKeyword", Message: "must not contain path separators"}
	}
	if op.DuplicateMode == ModeRedirect && op.RedirectDir == "" {
		return &ValidationError{Field: "RedirectDir", Message: "redirect directory is required in redirect mode"}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "must not be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
