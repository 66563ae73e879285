package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// ============== Fingerprint Tests ==============

func TestFingerprint(t *testing.T) {
	t.Run("ZeroValue", func(t *testing.T) {
		var fp Fingerprint
		if !fp.IsZero() {
			t.Error("zero fingerprint should report IsZero")
		}
		if fp.String() != "" {
			t.Errorf("String() = %q, want empty", fp.String())
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		hexStr := strings.Repeat("ab", FingerprintSize)
		fp, err := ParseFingerprint(hexStr)
		if err != nil {
			t.Fatalf("ParseFingerprint() error = %v", err)
		}
		if fp.String() != hexStr {
			t.Errorf("String() = %s, want %s", fp.String(), hexStr)
		}
		if fp.Short() != hexStr[:12] {
			t.Errorf("Short() = %s, want %s", fp.Short(), hexStr[:12])
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		if _, err := ParseFingerprint("abcd"); err == nil {
			t.Error("ParseFingerprint() should fail for short input")
		}
	})
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name string
		stem string
		ext  string
	}{
		{"photo.jpg", "photo", ".jpg"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".profile", ".profile", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitName(tt.name)
			if stem != tt.stem || ext != tt.ext {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.name, stem, ext, tt.stem, tt.ext)
			}
		})
	}
}

func TestFileRecordRelocated(t *testing.T) {
	rec := FileRecord{Path: "/dest/2023_01_15/photo.jpg", Size: 10, Fingerprint: Fingerprint{1}}
	moved := rec.Relocated("/dest/2023_01_15/photo_duplicate.jpg")

	if rec.Path != "/dest/2023_01_15/photo.jpg" {
		t.Error("Relocated() must not mutate the original record")
	}
	if moved.Name() != "photo_duplicate.jpg" || moved.Fingerprint != rec.Fingerprint {
		t.Errorf("Relocated() = %+v", moved)
	}
	if !moved.SameContent(Fingerprint{1}) {
		t.Error("SameContent() should match the copied fingerprint")
	}
	if moved.SameContent(Fingerprint{}) {
		t.Error("SameContent() must never match a zero fingerprint")
	}
}

// ============== Score Tests ==============

func TestScoreLess(t *testing.T) {
	early := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)

	tests := []struct {
		name string
		a, b Score
		want bool
	}{
		{"KeywordFirst", Score{0, 50, late}, Score{1, 5, early}, true},
		{"ShorterName", Score{0, 5, late}, Score{0, 6, early}, true},
		{"EarlierTimestamp", Score{0, 5, early}, Score{0, 5, late}, true},
		{"Tie", Score{0, 5, early}, Score{0, 5, early}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}

	if !(Score{0, 5, early}).Equal(Score{0, 5, early}) {
		t.Error("Equal() should hold for identical scores")
	}
}

// ============== Action Tests ==============

func TestOrderActions(t *testing.T) {
	batch := []Action{
		{Kind: ActionPlaceAsMaster, Source: "/src/a.jpg", Target: "/dest/a.jpg"},
		{Kind: ActionDemote, Source: "/dest/a.jpg", Target: "/dest/a_duplicate.jpg"},
		{Kind: ActionDemote, Source: "/dest/b/a.jpg", Target: "/dest/b/a_duplicate.jpg"},
	}

	ordered := OrderActions(batch)
	if len(ordered) != 3 {
		t.Fatalf("OrderActions() returned %d actions", len(ordered))
	}
	if ordered[0].Kind != ActionDemote || ordered[1].Kind != ActionDemote {
		t.Error("demotions must come first")
	}
	if ordered[2].Kind != ActionPlaceAsMaster {
		t.Error("incoming action must come last")
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		kind ActionKind
		want Outcome
	}{
		{ActionPlaceAsMaster, OutcomePlaced},
		{ActionSkip, OutcomeSkipped},
		{ActionOverwrite, OutcomeOverwritten},
		{ActionRename, OutcomeRenamed},
		{ActionRedirect, OutcomeRedirected},
		{ActionDemote, OutcomeDemotedOther},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := OutcomeFor(tt.kind); got != tt.want {
				t.Errorf("OutcomeFor(%s) = %s, want %s", tt.kind, got, tt.want)
			}
		})
	}
}

// ============== Conflict Tests ==============

func TestConflictOccupant(t *testing.T) {
	fp := Fingerprint{7}
	c := &Conflict{
		Kind:       ConflictBoth,
		Incoming:   Incoming{Path: "/src/photo.jpg", Fingerprint: fp},
		TargetDir:  "/dest/2023_01_15",
		TargetPath: "/dest/2023_01_15/photo.jpg",
		Existing: []FileRecord{
			{Path: "/dest/2023_01_15/photo.jpg", Fingerprint: Fingerprint{9}},
			{Path: "/dest/2022_12_01/other.jpg", Fingerprint: fp},
		},
	}

	occ, ok := c.Occupant()
	if !ok || occ.Path != c.TargetPath {
		t.Errorf("Occupant() = %+v, %v", occ, ok)
	}
	if !c.HasContentMatch() {
		t.Error("HasContentMatch() should find the second record")
	}
	if !c.IsConflict() {
		t.Error("IsConflict() should be true for ConflictBoth")
	}
	if c.Incoming.Name() != "photo.jpg" {
		t.Errorf("Incoming.Name() = %s", c.Incoming.Name())
	}
}

// ============== RunOperation Tests ==============

func TestParseDuplicateMode(t *testing.T) {
	for _, mode := range DuplicateModes {
		t.Run(string(mode), func(t *testing.T) {
			got, err := ParseDuplicateMode(strings.ToUpper(string(mode)))
			if err != nil {
				t.Fatalf("ParseDuplicateMode() error = %v", err)
			}
			if got != mode {
				t.Errorf("ParseDuplicateMode() = %s, want %s", got, mode)
			}
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseDuplicateMode("merge")
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestExifPolicyAccepts(t *testing.T) {
	tests := []struct {
		policy      ExifPolicy
		hasMetadata bool
		want        bool
	}{
		{ExifRequired, true, true},
		{ExifRequired, false, false},
		{ExifFallback, true, true},
		{ExifFallback, false, true},
		{ExifFilesystemOnly, true, false},
		{ExifFilesystemOnly, false, true},
	}

	for _, tt := range tests {
		if got := tt.policy.Accepts(tt.hasMetadata); got != tt.want {
			t.Errorf("%s.Accepts(%v) = %v, want %v", tt.policy, tt.hasMetadata, got, tt.want)
		}
	}
}

func validOperation() *RunOperation {
	return &RunOperation{
		SourcePath:       "/source",
		DestPath:         "/dest",
		Transfer:         TransferCopy,
		DuplicateMode:    ModeSkip,
		RedirectDir:      "Duplicates",
		DuplicateKeyword: "duplicate",
		ExifPolicy:       ExifFallback,
		MaxWorkers:       5,
		BufferSize:       4096,
	}
}

func TestRunOperationValidate(t *testing.T) {
	t.Run("ValidOperation", func(t *testing.T) {
		if err := validOperation().Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(op *RunOperation)
		field  string
	}{
		{"EmptySourcePath", func(op *RunOperation) { op.SourcePath = "" }, "SourcePath"},
		{"EmptyDestPath", func(op *RunOperation) { op.DestPath = "" }, "DestPath"},
		{"BadTransfer", func(op *RunOperation) { op.Transfer = "link" }, "Transfer"},
		{"BadExifPolicy", func(op *RunOperation) { op.ExifPolicy = "maybe" }, "ExifPolicy"},
		{"EmptyKeyword", func(op *RunOperation) { op.DuplicateKeyword = "" }, "DuplicateKeyword"},
		{"KeywordWithSlash", func(op *RunOperation) { op.DuplicateKeyword = "a/b" }, "DuplicateKeyword"},
		{"RedirectWithoutDir", func(op *RunOperation) {
			op.DuplicateMode = ModeRedirect
			op.RedirectDir = ""
		}, "RedirectDir"},
		{"ZeroWorkers", func(op *RunOperation) { op.MaxWorkers = 0 }, "MaxWorkers"},
		{"SmallBufferSize", func(op *RunOperation) { op.BufferSize = 512 }, "BufferSize"},
		{"NegativeBandwidth", func(op *RunOperation) { op.BandwidthLimit = -1 }, "BandwidthLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := validOperation()
			tt.mutate(op)
			err := op.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if ve, ok := err.(*ValidationError); ok && ve.Field != tt.field {
				t.Errorf("ValidationError.Field = %s, want %s", ve.Field, tt.field)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "TestField: test message"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}
}

// ============== Error Tests ==============

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("permission denied")

	tests := []struct {
		name string
		err  error
	}{
		{"ScanError", &ScanError{Path: "/dest/a", Err: cause}},
		{"HashError", &HashError{Path: "/src/a", Err: cause}},
		{"PlacementError", &PlacementError{Action: ActionRename, Source: "/a", Target: "/b", Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, cause) {
				t.Errorf("%s should unwrap to its cause", tt.name)
			}
			if !strings.Contains(tt.err.Error(), "permission denied") {
				t.Errorf("Error() = %s, should mention the cause", tt.err.Error())
			}
		})
	}

	exhausted := &NamingExhaustedError{Dir: "/dest", Stem: "photo"}
	if !strings.Contains(exhausted.Error(), "photo") {
		t.Errorf("Error() = %s", exhausted.Error())
	}
}

// ============== Report Tests ==============

func TestStatisticsCount(t *testing.T) {
	var s Statistics
	for _, o := range []Outcome{OutcomePlaced, OutcomePlaced, OutcomeSkipped, OutcomeDemotedOther, OutcomeFailed} {
		s.Count(Event{Outcome: o})
	}
	s.CountConflict(ConflictBoth)
	s.CountConflict(ConflictNone)

	if s.FilesPlaced != 2 || s.FilesSkipped != 1 || s.FilesDemoted != 1 || s.FilesErrored != 1 {
		t.Errorf("unexpected counters: %+v", s)
	}
	if s.ConflictsBoth != 1 || s.ConflictsContent != 0 {
		t.Errorf("unexpected conflict counters: %+v", s)
	}
}

func TestRunStatusExitCode(t *testing.T) {
	tests := []struct {
		status RunStatus
		code   int
	}{
		{StatusSuccess, 0},
		{StatusPartial, 1},
		{StatusFailed, 2},
		{StatusCancelled, 3},
		{RunStatus("unknown"), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.ExitCode(); got != tt.code {
				t.Errorf("ExitCode() = %d, want %d", got, tt.code)
			}
		})
	}
}
