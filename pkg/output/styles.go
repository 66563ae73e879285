package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// Adaptive colors adjust to light and dark terminal themes
var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB74D"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#E57373"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#616161", Dark: "#9E9E9E"}
)

// styles holds the lipgloss styles bound to one writer
// The renderer detects the color profile of that writer, so plain
// files and pipes receive no color codes
type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	error   lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		header:  r.NewStyle().Bold(true),
		label:   r.NewStyle().Width(22),
		success: r.NewStyle().Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		error:   r.NewStyle().Foreground(colorError).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

// status styles a run status
func (s styles) status(st models.RunStatus) string {
	switch st {
	case models.StatusSuccess:
		return s.success.Render(string(st))
	case models.StatusPartial, models.StatusCancelled:
		return s.warning.Render(string(st))
	default:
		return s.error.Render(string(st))
	}
}

// outcome styles an event outcome, padded for column alignment
func (s styles) outcome(o models.Outcome) string {
	text := string(o)
	for len(text) < len(models.OutcomeDemotedOther) {
		text += " "
	}
	switch o {
	case models.OutcomePlaced, models.OutcomeRenamed:
		return s.success.Render(text)
	case models.OutcomeFailed:
		return s.error.Render(text)
	case models.OutcomeSkipped:
		return s.muted.Render(text)
	default:
		return s.warning.Render(text)
	}
}
