package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/organize"
)

func testOperation() *models.RunOperation {
	return &models.RunOperation{
		ID:            "run-42",
		SourcePath:    "/src",
		DestPath:      "/dest",
		Transfer:      models.TransferCopy,
		DuplicateMode: models.ModeRedirect,
		ExifPolicy:    models.ExifFallback,
		DryRun:        true,
	}
}

func testReport() *models.RunReport {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	report := &models.RunReport{
		RunID:      "run-42",
		SourcePath: "/src",
		DestPath:   "/dest",
		Mode:       models.ModeRedirect,
		Transfer:   models.TransferCopy,
		DryRun:     true,
		StartTime:  start,
		EndTime:    start.Add(2 * time.Second),
		Duration:   2 * time.Second,
		Status:     models.StatusPartial,
		Events: []models.Event{
			{RunID: "run-42", Timestamp: start, IncomingPath: "/src/a_copy.jpg", Outcome: models.OutcomeDemotedOther,
				SubjectPath: "/dest/2023_01_16/a_copy.jpg", FinalPath: "/dest/Duplicates/2023_01_16/a_copy_duplicate.jpg",
				ConflictKind: models.ConflictContentOnly},
			{RunID: "run-42", Timestamp: start, IncomingPath: "/src/a.jpg", Outcome: models.OutcomePlaced,
				FinalPath: "/dest/2023_01_15/a.jpg", ConflictKind: models.ConflictContentOnly},
			{RunID: "run-42", Timestamp: start, IncomingPath: "/src/b.jpg", Outcome: models.OutcomeSkipped,
				Reason: "identical content already present", ConflictKind: models.ConflictBoth},
			{RunID: "run-42", Timestamp: start, IncomingPath: "/src/c.jpg", Outcome: models.OutcomeFailed,
				Err: errors.New("permission denied"), ConflictKind: models.ConflictNone},
		},
		Errors: []models.RunError{
			{FilePath: "/src/c.jpg", Operation: models.ActionPlaceAsMaster, Error: "permission denied", Timestamp: start},
		},
	}
	for _, ev := range report.Events {
		report.Stats.Count(ev)
	}
	report.Stats.CatalogFiles = 12
	report.Stats.CatalogUniqueHashes = 10
	report.Stats.SourceFilesScanned = 3
	report.Stats.FilesMatched = 3
	report.Stats.BytesTransferred = 2048
	return report
}

func TestNew(t *testing.T) {
	tests := []struct {
		format   string
		progress bool
		want     string
	}{
		{"human", false, "human"},
		{"human", true, "progress"},
		{"", false, "human"},
		{"json", true, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f, err := New(tt.format, tt.progress)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name())
		})
	}

	_, err := New("xml", false)
	assert.Error(t, err)
}

func TestHumanFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	ctx := context.Background()
	report := testReport()

	require.NoError(t, f.Start(&buf, testOperation()))
	require.NoError(t, f.Progress(organize.Progress{Phase: organize.PhaseCatalog, Done: 1}))
	require.NoError(t, f.Progress(organize.Progress{Phase: organize.PhaseCatalog, Done: 2}))
	require.NoError(t, f.Progress(organize.Progress{Phase: organize.PhaseOrganize, Done: 1, Total: 3}))
	for _, ev := range report.Events {
		require.NoError(t, f.Emit(ctx, ev))
	}
	require.NoError(t, f.Complete(report))
	require.NoError(t, f.Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "Planning (dry run)")
	assert.Equal(t, 1, strings.Count(out, "Cataloguing destination..."))
	assert.Contains(t, out, "Organizing files...")
	assert.Contains(t, out, "/dest/2023_01_16/a_copy.jpg -> a_copy_duplicate.jpg")
	assert.Contains(t, out, "/src/a.jpg -> /dest/2023_01_15/a.jpg")
	assert.Contains(t, out, "identical content already present")
	assert.Contains(t, out, "/src/c.jpg: permission denied")
	assert.Contains(t, out, "Planned")
	assert.Contains(t, out, "Destination catalog:")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "boom")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()

	require.NoError(t, f.Start(&buf, testOperation()))
	require.NoError(t, f.Progress(organize.Progress{Phase: organize.PhaseScan, Done: 1}))
	require.NoError(t, f.Emit(context.Background(), testReport().Events[0]))
	assert.Zero(t, buf.Len(), "nothing is written before Complete")

	require.NoError(t, f.Error(errors.New("journal unavailable")))
	require.NoError(t, f.Complete(testReport()))

	var data JSONReportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, "run-42", data.RunID)
	assert.Equal(t, "partial", data.Status)
	assert.Equal(t, 1, data.ExitCode)
	assert.Equal(t, int64(2000), data.DurationMs)
	assert.Equal(t, 12, data.Stats.Catalog.Files)
	assert.Equal(t, 1, data.Stats.Outcomes.Placed)
	assert.Equal(t, 1, data.Stats.Outcomes.Demoted)
	assert.Equal(t, 1, data.Stats.Outcomes.Errored)
	assert.Equal(t, "1.0 KiB/s", data.Stats.Transfer.AverageSpeedStr)
	require.Len(t, data.Events, 4)
	assert.Equal(t, "demoted-other", data.Events[0].Outcome)
	assert.Equal(t, "/dest/2023_01_16/a_copy.jpg", data.Events[0].Subject)
	assert.Empty(t, data.Events[3].Conflict)
	assert.Equal(t, "permission denied", data.Events[3].Error)
	require.Len(t, data.Errors, 1)
	assert.Equal(t, "place", data.Errors[0].Operation)
	assert.Equal(t, []string{"journal unavailable"}, data.RunErrors)
}

func TestProgressFormatterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()
	ctx := context.Background()
	report := testReport()

	require.NoError(t, f.Start(&buf, testOperation()))

	// Catalog progress arrives from the hashing workers
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(done int) {
			defer wg.Done()
			_ = f.Progress(organize.Progress{Phase: organize.PhaseCatalog, Done: done})
		}(i)
	}
	wg.Wait()

	require.NoError(t, f.Progress(organize.Progress{Phase: organize.PhaseOrganize, Done: 1, Total: 4}))
	for _, ev := range report.Events {
		require.NoError(t, f.Emit(ctx, ev))
	}
	require.NoError(t, f.Complete(report))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Cataloguing destination..."))
	assert.Contains(t, out, "Organizing files...")
	// Only failures are listed per file
	assert.Contains(t, out, "/src/c.jpg: permission denied")
	assert.NotContains(t, out, "/src/a.jpg -> ")
	assert.Contains(t, out, "Summary:")
}

func TestWritePlanReport(t *testing.T) {
	report := testReport()

	t.Run("Human", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePlanReport(&buf, report, "human"))
		out := buf.String()

		assert.Contains(t, out, "Total Actions: 4")
		assert.Contains(t, out, "Existing Files Demoted (1)")
		assert.Contains(t, out, "Files Placed (1)")
		assert.NotContains(t, out, "Files Renamed")
		// Failures come first
		assert.Less(t, strings.Index(out, "Failures (1)"), strings.Index(out, "Files Placed (1)"))
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePlanReport(&buf, report, "json"))

		var data struct {
			TotalCount int             `json:"total_count"`
			Actions    []JSONEventData `json:"actions"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
		assert.Equal(t, 4, data.TotalCount)
		assert.Equal(t, "/dest/2023_01_15/a.jpg", data.Actions[1].FinalPath)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plan.txt")
		require.NoError(t, WritePlanReportFile(report, path, "human"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Plan Report")
	})
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}
