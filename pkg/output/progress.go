package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
)

const (
	// Phases with an unknown total only count files
	counterTemplate pb.ProgressBarTemplate = `{{string . "phase"}} {{counter . }} files {{etime . }}`
	barTemplate     pb.ProgressBarTemplate = `{{string . "phase"}} {{bar . "[" "█" "█" "░" "]"}} {{percent . }} {{counter . }} {{rtime . "ETA %s"}}`
)

// getUpdateInterval returns the progress refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter shows one progress bar per phase
// When the writer is not a terminal it behaves like the human formatter
// minus the per-file lines
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	styles    styles
	terminal  bool
	termWidth int

	bar   *pb.ProgressBar
	phase string

	// failures are printed after the bars are gone
	failures []models.Event
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{writer: io.Discard}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, op *models.RunOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.styles = newStyles(writer)
	f.terminal = false
	f.termWidth = 0

	// Bars are drawn only on a real terminal
	if file, ok := writer.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		f.terminal = true
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}

	writeRunHeader(f.writer, f.styles, op)
	return nil
}

// Progress advances the bar of the current phase, replacing it when the phase changes
func (f *ProgressFormatter) Progress(p organize.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.Phase != f.phase {
		f.finishBar()
		f.phase = p.Phase
		if !f.terminal {
			fmt.Fprintln(f.writer, f.styles.muted.Render(phaseTitle(p.Phase)+"..."))
			return nil
		}
		f.bar = f.newBar(p)
	}

	if f.bar == nil {
		return nil
	}
	if p.Total > 0 {
		f.bar.SetTotal(int64(p.Total))
	}
	f.bar.SetCurrent(int64(p.Done))
	return nil
}

func (f *ProgressFormatter) newBar(p organize.Progress) *pb.ProgressBar {
	tmpl := counterTemplate
	if p.Total > 0 {
		tmpl = barTemplate
	}
	bar := tmpl.New(p.Total)
	bar.SetWriter(f.writer)
	bar.SetRefreshRate(getUpdateInterval())
	bar.Set(pb.Terminal, true)
	bar.Set("phase", fmt.Sprintf("%-24s", phaseTitle(p.Phase)))
	if f.termWidth > 0 {
		bar.SetMaxWidth(f.termWidth)
	}
	return bar.Start()
}

// finishBar stops the current bar; callers hold the lock
func (f *ProgressFormatter) finishBar() {
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

// Emit keeps failures for the summary; other events only move the bar
func (f *ProgressFormatter) Emit(_ context.Context, ev models.Event) error {
	if ev.Outcome != models.OutcomeFailed {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, ev)
	return nil
}

// Complete finalizes output and displays summary
func (f *ProgressFormatter) Complete(report *models.RunReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()

	if len(f.failures) > 0 {
		fmt.Fprintf(f.writer, "\n")
		for _, ev := range f.failures {
			fmt.Fprintln(f.writer, formatEvent(f.styles, ev))
		}
	}

	writeSummary(f.writer, f.styles, report)
	return nil
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	fmt.Fprintf(f.writer, "\n%s %v\n", f.styles.error.Render("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
