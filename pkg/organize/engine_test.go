package organize

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

var (
	jan15 = time.Date(2023, 1, 15, 10, 0, 0, 0, time.Local)
	jan16 = time.Date(2023, 1, 16, 10, 0, 0, 0, time.Local)
)

// testTree is an in-memory filesystem with helpers for seeding files
type testTree struct {
	t   *testing.T
	mem afero.Fs
}

func newTestTree(t *testing.T) *testTree {
	t.Helper()
	return &testTree{t: t, mem: afero.NewMemMapFs()}
}

func (tt *testTree) file(path, content string, mtime time.Time) {
	tt.t.Helper()
	require.NoError(tt.t, afero.WriteFile(tt.mem, path, []byte(content), 0644))
	require.NoError(tt.t, tt.mem.Chtimes(path, mtime, mtime))
}

func (tt *testTree) read(path string) string {
	tt.t.Helper()
	data, err := afero.ReadFile(tt.mem, path)
	require.NoError(tt.t, err)
	return string(data)
}

func (tt *testTree) exists(path string) bool {
	tt.t.Helper()
	ok, err := afero.Exists(tt.mem, path)
	require.NoError(tt.t, err)
	return ok
}

func (tt *testTree) backend() *storage.FS {
	return storage.New(tt.mem)
}

func newOperation(mode models.DuplicateMode) *models.RunOperation {
	return &models.RunOperation{
		ID:                 "test-run",
		SourcePath:         "/src",
		DestPath:           "/dest",
		Transfer:           models.TransferCopy,
		DuplicateMode:      mode,
		ComprehensiveCheck: true,
		RedirectDir:        "Duplicates",
		DuplicateKeyword:   "duplicate",
		ExifPolicy:         models.ExifFallback,
		MaxWorkers:         2,
		BufferSize:         4096,
	}
}

func runEngine(t *testing.T, tree *testTree, op *models.RunOperation, opts Options) *models.RunReport {
	t.Helper()
	engine, err := NewEngine(tree.backend(), op, opts)
	require.NoError(t, err)
	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	return report
}

func outcomes(report *models.RunReport) []models.Outcome {
	var out []models.Outcome
	for _, ev := range report.Events {
		out = append(out, ev.Outcome)
	}
	return out
}

func TestEnginePlacesIntoDateFolders(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/a.jpg", "a", jan15)
	tree.file("/src/nested/b.jpg", "b", jan16)

	report := runEngine(t, tree, newOperation(models.ModeSkip), Options{})

	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, 2, report.Stats.FilesPlaced)
	assert.Equal(t, int64(2), report.Stats.BytesTransferred)
	assert.Equal(t, "a", tree.read("/dest/2023_01_15/a.jpg"))
	assert.Equal(t, "b", tree.read("/dest/2023_01_16/b.jpg"))
	assert.True(t, tree.exists("/src/a.jpg"), "copy keeps the source")
}

func TestEngineMoveRemovesSource(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/a.jpg", "a", jan15)

	op := newOperation(models.ModeSkip)
	op.Transfer = models.TransferMove
	runEngine(t, tree, op, Options{})

	assert.False(t, tree.exists("/src/a.jpg"))
	assert.Equal(t, "a", tree.read("/dest/2023_01_15/a.jpg"))
}

func TestEngineBandwidthLimit(t *testing.T) {
	tree := newTestTree(t)
	content := strings.Repeat("x", 8*1024)
	tree.file("/src/a.jpg", content, jan15)

	op := newOperation(models.ModeSkip)
	op.BandwidthLimit = 1024 * 1024
	report := runEngine(t, tree, op, Options{})

	assert.Equal(t, models.StatusSuccess, report.Status)
	assert.Equal(t, content, tree.read("/dest/2023_01_15/a.jpg"))
	assert.Equal(t, int64(len(content)), report.Stats.BytesTransferred)
}

func TestEngineScenarioContentRename(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/2023_01_15/photo.jpg", "old", jan15.Add(-2*time.Hour))
	tree.file("/src/photo.jpg", "new", jan15)
	tree.file("/src/sub/photo.jpg", "newer", jan15.Add(time.Hour))

	op := newOperation(models.ModeContent)
	op.DuplicateKeyword = "version"
	report := runEngine(t, tree, op, Options{})

	assert.Equal(t, []models.Outcome{models.OutcomeRenamed, models.OutcomeRenamed}, outcomes(report))
	assert.Equal(t, "old", tree.read("/dest/2023_01_15/photo.jpg"))
	assert.Equal(t, "new", tree.read("/dest/2023_01_15/photo_version.jpg"))
	assert.Equal(t, "newer", tree.read("/dest/2023_01_15/photo_version_001.jpg"))
	assert.Equal(t, 2, report.Stats.ConflictsFilename)
}

func TestEngineScenarioFilenameOnlyCatalog(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/one.jpg", "same", jan15)
	tree.file("/src/two.jpg", "same", jan15)

	op := newOperation(models.ModeSkip)
	op.ComprehensiveCheck = false
	report := runEngine(t, tree, op, Options{})

	assert.Equal(t, []models.Outcome{models.OutcomePlaced, models.OutcomePlaced}, outcomes(report))
	for _, ev := range report.Events {
		assert.Equal(t, models.ConflictNone, ev.ConflictKind)
	}
	assert.True(t, tree.exists("/dest/2023_01_15/one.jpg"))
	assert.True(t, tree.exists("/dest/2023_01_15/two.jpg"))
}

func TestEngineScenarioRedirectDemotion(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/2023_01_16/photo_copy.jpg", "pixels", jan16)
	tree.file("/src/photo.jpg", "pixels", jan15)

	report := runEngine(t, tree, newOperation(models.ModeRedirect), Options{})

	require.Equal(t, []models.Outcome{models.OutcomeDemotedOther, models.OutcomePlaced}, outcomes(report))
	assert.Equal(t, "/dest/2023_01_16/photo_copy.jpg", report.Events[0].SubjectPath)
	assert.Equal(t, "/dest/Duplicates/2023_01_16/photo_copy_duplicate.jpg", report.Events[0].FinalPath)
	assert.Equal(t, "/dest/2023_01_15/photo.jpg", report.Events[1].FinalPath)

	assert.False(t, tree.exists("/dest/2023_01_16/photo_copy.jpg"))
	assert.Equal(t, "pixels", tree.read("/dest/Duplicates/2023_01_16/photo_copy_duplicate.jpg"))
	assert.Equal(t, "pixels", tree.read("/dest/2023_01_15/photo.jpg"))
}

func TestEngineIdempotence(t *testing.T) {
	for _, mode := range []models.DuplicateMode{models.ModeSkip, models.ModeContent} {
		t.Run(string(mode), func(t *testing.T) {
			tree := newTestTree(t)
			tree.file("/src/a.jpg", "a", jan15)
			tree.file("/src/a_copy.jpg", "a", jan15)
			tree.file("/src/b.jpg", "b", jan16)

			first := runEngine(t, tree, newOperation(mode), Options{})
			assert.Equal(t, 2, first.Stats.FilesPlaced)

			second := runEngine(t, tree, newOperation(mode), Options{})
			assert.Equal(t, 0, second.Stats.FilesPlaced)
			assert.Equal(t, 0, second.Stats.FilesRenamed)
			assert.Equal(t, 0, second.Stats.FilesDemoted)
			assert.Equal(t, 3, second.Stats.FilesSkipped)
		})
	}
}

func TestEngineNoPathCollision(t *testing.T) {
	for _, mode := range []models.DuplicateMode{models.ModeRename, models.ModeRedirect, models.ModeOverwrite} {
		t.Run(string(mode), func(t *testing.T) {
			tree := newTestTree(t)
			tree.file("/dest/2023_01_15/img.jpg", "x", jan15.Add(time.Hour))
			tree.file("/src/a/img.jpg", "x", jan15)
			tree.file("/src/b/img.jpg", "y", jan15)
			tree.file("/src/c/img (1).jpg", "w", jan15)
			tree.file("/src/d/img.jpg", "z", jan15.Add(-time.Hour))

			report := runEngine(t, tree, newOperation(mode), Options{})
			for _, ev := range report.Events {
				require.NotEqual(t, models.OutcomeFailed, ev.Outcome, ev.Err)
			}

			// Every distinct content survives under its own path
			var contents []string
			err := afero.Walk(tree.mem, "/dest", func(path string, info os.FileInfo, err error) error {
				require.NoError(t, err)
				if !info.IsDir() {
					contents = append(contents, tree.read(path))
				}
				return nil
			})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"x", "y", "w", "z"}, dedupe(contents))
			assert.Equal(t, len(contents), report.Stats.CatalogFiles+report.Stats.FilesPlaced+
				report.Stats.FilesRenamed+report.Stats.FilesRedirected)
		})
	}
}

func dedupe(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func TestEngineDryRunLeavesFilesystem(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/a.jpg", "a", jan15)

	op := newOperation(models.ModeSkip)
	op.DryRun = true
	op.Transfer = models.TransferMove
	report := runEngine(t, tree, op, Options{})

	require.Len(t, report.Events, 1)
	assert.True(t, report.Events[0].DryRun)
	assert.Equal(t, "/dest/2023_01_15/a.jpg", report.Events[0].FinalPath)
	assert.True(t, tree.exists("/src/a.jpg"))
	assert.False(t, tree.exists("/dest"))
}

func TestEngineDryRunMatchesRealRunPaths(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/2023_01_15/a_duplicate.jpg", "q", jan15)
	tree.file("/src/1/a.jpg", "q", jan15)
	tree.file("/src/2/a.jpg", "r", jan15.Add(time.Hour))

	finalPaths := func(report *models.RunReport) []string {
		var out []string
		for _, ev := range report.Events {
			out = append(out, ev.FinalPath)
		}
		return out
	}

	dry := newOperation(models.ModeRename)
	dry.DryRun = true
	planned := runEngine(t, tree, dry, Options{})
	assert.True(t, tree.exists("/dest/2023_01_15/a_duplicate.jpg"), "dry run left the filesystem alone")

	applied := runEngine(t, tree, newOperation(models.ModeRename), Options{})

	assert.Equal(t, finalPaths(applied), finalPaths(planned))
	// The second a.jpg takes the name the demotion freed
	require.NotEmpty(t, applied.Events)
	last := applied.Events[len(applied.Events)-1]
	assert.Equal(t, "/src/2/a.jpg", last.IncomingPath)
	assert.Equal(t, "/dest/2023_01_15/a_duplicate.jpg", last.FinalPath)
	assert.Equal(t, "r", tree.read("/dest/2023_01_15/a_duplicate.jpg"))
	assert.Equal(t, "q", tree.read("/dest/2023_01_15/a.jpg"))
}

func TestEngineFilters(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/a.JPG", "a", jan15)
	tree.file("/src/b.png", "b", jan15)
	tree.file("/src/c.txt", "c", jan15)
	tree.file("/src/.thumbs/d.jpg", "d", jan15)
	tree.file("/src/e.tmp.jpg", "e", jan15)

	op := newOperation(models.ModeSkip)
	op.Extensions = []string{".jpg", ".png"}
	op.ExcludePatterns = []string{".thumbs/", "*.tmp.jpg"}
	report := runEngine(t, tree, op, Options{})

	assert.Equal(t, 4, report.Stats.SourceFilesScanned)
	assert.Equal(t, 2, report.Stats.FilesMatched)
	assert.Equal(t, 2, report.Stats.FilesFiltered)
	assert.True(t, tree.exists("/dest/2023_01_15/a.JPG"))
	assert.True(t, tree.exists("/dest/2023_01_15/b.png"))
}

type pathExtractor struct{}

func (pathExtractor) CreationTime(ctx context.Context, path string) (time.Time, bool, error) {
	if strings.Contains(path, "exif") {
		return jan16, true, nil
	}
	return time.Time{}, false, nil
}

func TestEngineExifPolicy(t *testing.T) {
	tests := []struct {
		policy models.ExifPolicy
		want   []string
	}{
		{models.ExifRequired, []string{"/dest/2023_01_16/with_exif.jpg"}},
		{models.ExifFallback, []string{"/dest/2023_01_16/with_exif.jpg", "/dest/2023_01_15/plain.jpg"}},
		{models.ExifFilesystemOnly, []string{"/dest/2023_01_15/plain.jpg"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tree := newTestTree(t)
			tree.file("/src/plain.jpg", "p", jan15)
			tree.file("/src/with_exif.jpg", "x", jan15)

			op := newOperation(models.ModeSkip)
			op.ExifPolicy = tt.policy
			report := runEngine(t, tree, op, Options{Extractor: pathExtractor{}})

			var placed []string
			for _, ev := range report.Events {
				placed = append(placed, ev.FinalPath)
			}
			assert.ElementsMatch(t, tt.want, placed)
		})
	}
}

type cancellingPrompter struct {
	calls int
}

func (p *cancellingPrompter) Resolve(ctx context.Context, c models.Conflict, subject models.FileRecord) (models.Decision, error) {
	p.calls++
	return "", models.ErrInteractiveCancelled
}

func TestEngineInteractiveCancellationStopsRun(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/2023_01_15/b.jpg", "b", jan15)
	tree.file("/src/a.jpg", "a", jan15)
	tree.file("/src/b.jpg", "b", jan15)
	tree.file("/src/c.jpg", "c", jan15)

	p := &cancellingPrompter{}
	engine, err := NewEngine(tree.backend(), newOperation(models.ModeInteractive), Options{Prompter: p})
	require.NoError(t, err)

	report, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrInteractiveCancelled)
	require.NotNil(t, report)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Equal(t, 1, p.calls)
	assert.True(t, tree.exists("/dest/2023_01_15/a.jpg"))
	assert.False(t, tree.exists("/dest/2023_01_15/c.jpg"))

	require.Len(t, report.Events, 2)
	last := report.Events[1]
	assert.Equal(t, "/src/b.jpg", last.IncomingPath)
	assert.Equal(t, models.OutcomeSkipped, last.Outcome)
	assert.Equal(t, "interactive prompt cancelled", last.Reason)
	assert.Equal(t, models.ConflictBoth, last.ConflictKind)
	assert.Equal(t, 1, report.Stats.FilesSkipped)
	assert.Equal(t, 1, report.Stats.FilesPlaced)
}

func TestEngineInteractiveRequiresPrompter(t *testing.T) {
	tree := newTestTree(t)
	_, err := NewEngine(tree.backend(), newOperation(models.ModeInteractive), Options{})
	assert.Error(t, err)
}

func TestEngineContextCancelled(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/2023_01_15/x.jpg", "x", jan15)
	tree.file("/src/a.jpg", "a", jan15)

	engine, err := NewEngine(tree.backend(), newOperation(models.ModeSkip), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.False(t, tree.exists("/dest/2023_01_15/a.jpg"))
}

func TestEngineEmitsToSinkAndProgress(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/src/a.jpg", "a", jan15)
	tree.file("/src/b.jpg", "b", jan15)

	var events []models.Event
	var organized []Progress
	sink := SinkFunc(func(ctx context.Context, ev models.Event) error {
		events = append(events, ev)
		return nil
	})
	runEngine(t, tree, newOperation(models.ModeSkip), Options{
		Sink: sink,
		OnProgress: func(p Progress) {
			if p.Phase == PhaseOrganize {
				organized = append(organized, p)
			}
		},
	})

	require.Len(t, events, 2)
	assert.Equal(t, "test-run", events[0].RunID)
	require.Len(t, organized, 2)
	assert.Equal(t, 2, organized[1].Done)
	assert.Equal(t, 2, organized[1].Total)
}

func TestEngineIgnorePaths(t *testing.T) {
	tree := newTestTree(t)
	tree.file("/dest/orgphoto.log", "log", jan15)
	tree.file("/dest/2023_01_15/a.jpg", "a", jan15)

	report := runEngine(t, tree, newOperation(models.ModeSkip), Options{IgnorePaths: []string{"/dest/orgphoto.log"}})
	assert.Equal(t, 1, report.Stats.CatalogFiles)
}
