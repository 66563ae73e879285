package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// ActionKind is the tag of an Action
type ActionKind string

const (
	// ActionPlaceAsMaster places the incoming file at its canonical path
	ActionPlaceAsMaster ActionKind = "place"
	// ActionSkip leaves the incoming file where it is
	ActionSkip ActionKind = "skip"
	// ActionOverwrite replaces an existing non-master file with the incoming one
	ActionOverwrite ActionKind = "overwrite"
	// ActionRename places the incoming file under a keyword-suffixed name
	ActionRename ActionKind = "rename"
	// ActionRedirect places the incoming file in the redirect tree
	ActionRedirect ActionKind = "redirect"
	// ActionDemote moves an existing record out of the way
	ActionDemote ActionKind = "demote"
)

// Action is one filesystem step decided for an incoming file
type Action struct {
	Kind ActionKind
	// Source is the incoming path, or the old path of a demoted record
	Source string
	// Target is the destination path (empty for Skip)
	Target string
	// Record is the existing record a Demote or Overwrite acts on
	Record *FileRecord
	Reason string
}

// AffectsIncoming reports whether the action concerns the incoming file
func (a Action) AffectsIncoming() bool {
	return a.Kind != ActionDemote
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSkip:
		return fmt.Sprintf("skip %s (%s)", filepath.Base(a.Source), a.Reason)
	default:
		return fmt.Sprintf("%s %s -> %s", a.Kind, a.Source, a.Target)
	}
}

// OrderActions returns the batch with every demotion ahead of the incoming action
func OrderActions(batch []Action) []Action {
	ordered := make([]Action, 0, len(batch))
	for _, a := range batch {
		if a.Kind == ActionDemote {
			ordered = append(ordered, a)
		}
	}
	for _, a := range batch {
		if a.Kind != ActionDemote {
			ordered = append(ordered, a)
		}
	}
	return ordered
}

// Outcome is what finally happened to a file
type Outcome string

const (
	OutcomePlaced       Outcome = "placed"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeRenamed      Outcome = "renamed"
	OutcomeOverwritten  Outcome = "overwritten"
	OutcomeRedirected   Outcome = "redirected"
	OutcomeDemotedOther Outcome = "demoted-other"
	OutcomeFailed       Outcome = "failed"
)

// OutcomeFor maps a successful action to its outcome
func OutcomeFor(kind ActionKind) Outcome {
	switch kind {
	case ActionPlaceAsMaster:
		return OutcomePlaced
	case ActionSkip:
		return OutcomeSkipped
	case ActionOverwrite:
		return OutcomeOverwritten
	case ActionRename:
		return OutcomeRenamed
	case ActionRedirect:
		return OutcomeRedirected
	case ActionDemote:
		return OutcomeDemotedOther
	default:
		return OutcomeFailed
	}
}

// Event is emitted for every applied action
type Event struct {
	RunID        string
	Timestamp    time.Time
	IncomingPath string
	Outcome      Outcome
	Reason       string
	// FinalPath is where the file ended up (empty when skipped or failed)
	FinalPath string
	// SubjectPath is the existing record concerned by a demotion
	SubjectPath  string
	ConflictKind ConflictKind
	DryRun       bool
	Err          error
}
