package output

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	styles styles
	phase  string
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{writer: io.Discard}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, op *models.RunOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = io.Discard
	}
	f.writer = writer
	f.styles = newStyles(writer)
	f.phase = ""

	writeRunHeader(f.writer, f.styles, op)
	return nil
}

// Progress announces each phase once
func (f *HumanFormatter) Progress(p organize.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.Phase == f.phase {
		return nil
	}
	f.phase = p.Phase
	fmt.Fprintln(f.writer, f.styles.muted.Render(phaseTitle(p.Phase)+"..."))
	return nil
}

// Emit prints one line per event
func (f *HumanFormatter) Emit(_ context.Context, ev models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintln(f.writer, formatEvent(f.styles, ev))
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.RunReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeSummary(f.writer, f.styles, report)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.writer, "%s %v\n", f.styles.error.Render("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func phaseTitle(phase string) string {
	switch phase {
	case organize.PhaseCatalog:
		return "Cataloguing destination"
	case organize.PhaseScan:
		return "Scanning source"
	case organize.PhaseOrganize:
		return "Organizing files"
	default:
		return phase
	}
}

func writeRunHeader(w io.Writer, s styles, op *models.RunOperation) {
	title := "Organizing"
	if op.DryRun {
		title = "Planning (dry run)"
	}
	fmt.Fprintf(w, "%s %s -> %s\n", s.header.Render(title), op.SourcePath, op.DestPath)
	fmt.Fprintf(w, "%s\n", s.muted.Render(fmt.Sprintf("mode=%s transfer=%s exif=%s comprehensive=%v",
		op.DuplicateMode, op.Transfer, op.ExifPolicy, op.ComprehensiveCheck)))
}

// formatEvent renders one event on a single line
func formatEvent(s styles, ev models.Event) string {
	label := s.outcome(ev.Outcome)
	switch ev.Outcome {
	case models.OutcomeFailed:
		return fmt.Sprintf("%s %s: %v", label, ev.IncomingPath, ev.Err)
	case models.OutcomeSkipped:
		return fmt.Sprintf("%s %s %s", label, ev.IncomingPath, s.muted.Render("("+ev.Reason+")"))
	case models.OutcomeDemotedOther:
		return fmt.Sprintf("%s %s -> %s", label, ev.SubjectPath, filepath.Base(ev.FinalPath))
	default:
		return fmt.Sprintf("%s %s -> %s", label, ev.IncomingPath, ev.FinalPath)
	}
}

// writeSummary prints the end-of-run totals shared by the human formatters
func writeSummary(w io.Writer, s styles, report *models.RunReport) {
	st := report.Stats
	line := func(label string, value any) {
		fmt.Fprintf(w, "    %s%v\n", s.label.Render(label), value)
	}

	fmt.Fprintf(w, "\n")
	verb := "Organized"
	if report.DryRun {
		verb = "Planned"
	}
	fmt.Fprintf(w, "%s in %s\n", s.header.Render(verb), report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Destination catalog:\n")
	line("Files:", st.CatalogFiles)
	line("Unique contents:", st.CatalogUniqueHashes)
	line("Duplicate groups:", st.CatalogDuplicates)
	if st.CatalogScanErrors > 0 {
		line("Scan errors:", st.CatalogScanErrors)
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Source:\n")
	line("Files scanned:", st.SourceFilesScanned)
	line("Files matched:", st.FilesMatched)
	line("Files filtered:", st.FilesFiltered)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Outcomes:\n")
	line("Placed:", st.FilesPlaced)
	line("Skipped:", st.FilesSkipped)
	line("Renamed:", st.FilesRenamed)
	line("Overwritten:", st.FilesOverwritten)
	line("Redirected:", st.FilesRedirected)
	line("Demoted:", st.FilesDemoted)
	line("Errored:", st.FilesErrored)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Conflicts:\n")
	line("Same name:", st.ConflictsFilename)
	line("Same content:", st.ConflictsContent)
	line("Name and content:", st.ConflictsBoth)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Transfer:\n")
	line("Data:", formatBytes(st.BytesTransferred))
	if report.Duration.Seconds() > 0 && st.BytesTransferred > 0 {
		avgSpeed := float64(st.BytesTransferred) / report.Duration.Seconds()
		line("Average speed:", formatBytes(int64(avgSpeed))+"/s")
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", s.status(report.Status))

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, err := range report.Errors {
			fmt.Fprintf(w, "  %s: %s\n", err.FilePath, s.error.Render(err.Error))
		}
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
