package models

import (
	"errors"
	"fmt"
)

// ErrInteractiveCancelled is returned when the user aborts an interactive prompt
// It terminates the run
var ErrInteractiveCancelled = errors.New("interactive prompt cancelled")

// ScanError reports a destination entry that could not be indexed
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// HashError reports a file that could not be fingerprinted
type HashError struct {
	Path string
	Err  error
}

func (e *HashError) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *HashError) Unwrap() error { return e.Err }

// PlacementError reports a failed copy, move or rename
type PlacementError struct {
	Action ActionKind
	Source string
	Target string
	Err    error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v", e.Action, e.Source, e.Target, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

// NamingExhaustedError is returned when no free name can be generated
type NamingExhaustedError struct {
	Dir  string
	Stem string
}

func (e *NamingExhaustedError) Error() string {
	return fmt.Sprintf("no free name left for %q in %s", e.Stem, e.Dir)
}
