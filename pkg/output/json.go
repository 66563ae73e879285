package output

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
)

// JSONFormatter formats output as JSON for automation and scripting
// Nothing is written before Complete so the output stays one document
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	errors []string
}

// JSONReportData represents the final report data
type JSONReportData struct {
	RunID      string          `json:"run_id"`
	SourcePath string          `json:"source"`
	DestPath   string          `json:"destination"`
	Mode       string          `json:"duplicate_handling"`
	Transfer   string          `json:"transfer"`
	DryRun     bool            `json:"dry_run"`
	Status     string          `json:"status"`
	ExitCode   int             `json:"exit_code"`
	StartTime  string          `json:"start_time"`
	Duration   string          `json:"duration"`
	DurationMs int64           `json:"duration_ms"`
	Stats      JSONStatsData   `json:"stats"`
	Events     []JSONEventData `json:"events"`
	Errors     []JSONErrorData `json:"errors,omitempty"`
	RunErrors  []string        `json:"run_errors,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	Catalog   JSONCatalogData   `json:"catalog"`
	Source    JSONSourceData    `json:"source"`
	Outcomes  JSONOutcomesData  `json:"outcomes"`
	Conflicts JSONConflictsData `json:"conflicts"`
	Transfer  JSONTransferData  `json:"transfer"`
}

// JSONCatalogData represents destination catalog statistics
type JSONCatalogData struct {
	Files           int `json:"files"`
	UniqueContents  int `json:"unique_contents"`
	DuplicateGroups int `json:"duplicate_groups"`
	ScanErrors      int `json:"scan_errors"`
}

// JSONSourceData represents source scan statistics
type JSONSourceData struct {
	FilesScanned  int `json:"files_scanned"`
	FilesMatched  int `json:"files_matched"`
	FilesFiltered int `json:"files_filtered"`
}

// JSONOutcomesData represents outcome counters
type JSONOutcomesData struct {
	Placed      int `json:"placed"`
	Skipped     int `json:"skipped"`
	Renamed     int `json:"renamed"`
	Overwritten int `json:"overwritten"`
	Redirected  int `json:"redirected"`
	Demoted     int `json:"demoted"`
	Errored     int `json:"errored"`
}

// JSONConflictsData represents conflict counters by kind
type JSONConflictsData struct {
	Filename int `json:"filename"`
	Content  int `json:"content"`
	Both     int `json:"both"`
}

// JSONTransferData represents transfer statistics
type JSONTransferData struct {
	BytesTransferred int64  `json:"bytes_transferred"`
	AverageSpeed     int64  `json:"average_speed_bytes_per_sec,omitempty"`
	AverageSpeedStr  string `json:"average_speed,omitempty"`
}

// JSONEventData represents one applied action
type JSONEventData struct {
	Timestamp string `json:"timestamp"`
	Incoming  string `json:"incoming"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	FinalPath string `json:"final_path,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Conflict  string `json:"conflict,omitempty"`
	Error     string `json:"error,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path      string `json:"path"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{writer: io.Discard}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, _ *models.RunOperation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.errors = nil
	return nil
}

// Progress is not reported to keep the output parseable
func (f *JSONFormatter) Progress(organize.Progress) error {
	return nil
}

// Emit does nothing; events are read from the report
func (f *JSONFormatter) Emit(context.Context, models.Event) error {
	return nil
}

// Complete writes the report as a single JSON document
func (f *JSONFormatter) Complete(report *models.RunReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := newJSONReport(report)
	data.RunErrors = f.errors

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error records a run-level error for the final document
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, err.Error())
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func newJSONReport(report *models.RunReport) JSONReportData {
	st := report.Stats

	var avgSpeed int64
	var avgSpeedStr string
	if report.Duration.Seconds() > 0 && st.BytesTransferred > 0 {
		avgSpeed = int64(float64(st.BytesTransferred) / report.Duration.Seconds())
		avgSpeedStr = formatBytes(avgSpeed) + "/s"
	}

	events := make([]JSONEventData, 0, len(report.Events))
	for _, ev := range report.Events {
		events = append(events, newJSONEvent(ev))
	}

	var errors []JSONErrorData
	for _, err := range report.Errors {
		errors = append(errors, JSONErrorData{
			Path:      err.FilePath,
			Operation: string(err.Operation),
			Error:     err.Error,
		})
	}

	return JSONReportData{
		RunID:      report.RunID,
		SourcePath: report.SourcePath,
		DestPath:   report.DestPath,
		Mode:       string(report.Mode),
		Transfer:   string(report.Transfer),
		DryRun:     report.DryRun,
		Status:     string(report.Status),
		ExitCode:   report.Status.ExitCode(),
		StartTime:  report.StartTime.Format(time.RFC3339),
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			Catalog: JSONCatalogData{
				Files:           st.CatalogFiles,
				UniqueContents:  st.CatalogUniqueHashes,
				DuplicateGroups: st.CatalogDuplicates,
				ScanErrors:      st.CatalogScanErrors,
			},
			Source: JSONSourceData{
				FilesScanned:  st.SourceFilesScanned,
				FilesMatched:  st.FilesMatched,
				FilesFiltered: st.FilesFiltered,
			},
			Outcomes: JSONOutcomesData{
				Placed:      st.FilesPlaced,
				Skipped:     st.FilesSkipped,
				Renamed:     st.FilesRenamed,
				Overwritten: st.FilesOverwritten,
				Redirected:  st.FilesRedirected,
				Demoted:     st.FilesDemoted,
				Errored:     st.FilesErrored,
			},
			Conflicts: JSONConflictsData{
				Filename: st.ConflictsFilename,
				Content:  st.ConflictsContent,
				Both:     st.ConflictsBoth,
			},
			Transfer: JSONTransferData{
				BytesTransferred: st.BytesTransferred,
				AverageSpeed:     avgSpeed,
				AverageSpeedStr:  avgSpeedStr,
			},
		},
		Events: events,
		Errors: errors,
	}
}

func newJSONEvent(ev models.Event) JSONEventData {
	data := JSONEventData{
		Timestamp: ev.Timestamp.Format(time.RFC3339Nano),
		Incoming:  ev.IncomingPath,
		Outcome:   string(ev.Outcome),
		Reason:    ev.Reason,
		FinalPath: ev.FinalPath,
		Subject:   ev.SubjectPath,
	}
	if ev.ConflictKind != models.ConflictNone {
		data.Conflict = string(ev.ConflictKind)
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
	}
	return data
}
