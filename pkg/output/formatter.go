package output

import (
	"context"
	"fmt"
	"io"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
)

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters.
// A formatter is also an event sink; Progress may be called from several
// goroutines while the destination is being catalogued
type Formatter interface {
	// Start initializes the formatter for a new organize run
	Start(writer io.Writer, op *models.RunOperation) error

	// Progress reports progress of the current phase
	Progress(p organize.Progress) error

	// Emit reports one applied action
	Emit(ctx context.Context, ev models.Event) error

	// Complete finalizes output and displays summary
	Complete(report *models.RunReport) error

	// Error reports a run-level error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for an output format
// The progress flag selects the progress bar variant of the human format
func New(format string, progress bool) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(), nil
	case "human", "":
		if progress {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use: human, json)", format)
	}
}
