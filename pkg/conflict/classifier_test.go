package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/orgphoto/pkg/catalog"
	"github.com/sdejongh/orgphoto/pkg/models"
)

var (
	fpA = models.Fingerprint{0xA}
	fpB = models.Fingerprint{0xB}
	fpC = models.Fingerprint{0xC}
)

func newCatalog() *catalog.Catalog {
	cat := catalog.New("/dest", true)
	cat.Insert(models.FileRecord{Path: "/dest/2023_01_15/photo.jpg", Fingerprint: fpA})
	cat.Insert(models.FileRecord{Path: "/dest/2022_05_01/zzz.jpg", Fingerprint: fpA})
	cat.Insert(models.FileRecord{Path: "/dest/2023_01_16/other.jpg", Fingerprint: fpB})
	return cat
}

func TestClassify(t *testing.T) {
	c := NewClassifier(newCatalog())

	tests := []struct {
		name      string
		incoming  models.Incoming
		targetDir string
		kind      models.ConflictKind
		paths     []string
	}{
		{
			name:      "None",
			incoming:  models.Incoming{Path: "/src/new.jpg", Fingerprint: fpC},
			targetDir: "/dest/2023_01_15",
			kind:      models.ConflictNone,
		},
		{
			name:      "FilenameOnly",
			incoming:  models.Incoming{Path: "/src/photo.jpg", Fingerprint: fpC},
			targetDir: "/dest/2023_01_15",
			kind:      models.ConflictFilenameOnly,
			paths:     []string{"/dest/2023_01_15/photo.jpg"},
		},
		{
			name:      "NameLookupIsLocal",
			incoming:  models.Incoming{Path: "/src/photo.jpg", Fingerprint: fpC},
			targetDir: "/dest/2023_01_20",
			kind:      models.ConflictNone,
		},
		{
			name:      "ContentOnlyIsGlobal",
			incoming:  models.Incoming{Path: "/src/photo_copy.jpg", Fingerprint: fpA},
			targetDir: "/dest/2023_01_20",
			kind:      models.ConflictContentOnly,
			paths:     []string{"/dest/2022_05_01/zzz.jpg", "/dest/2023_01_15/photo.jpg"},
		},
		{
			name:      "BothNameFirstNoRepeats",
			incoming:  models.Incoming{Path: "/src/photo.jpg", Fingerprint: fpA},
			targetDir: "/dest/2023_01_15",
			kind:      models.ConflictBoth,
			paths:     []string{"/dest/2023_01_15/photo.jpg", "/dest/2022_05_01/zzz.jpg"},
		},
		{
			name:      "BothWithDifferentRecords",
			incoming:  models.Incoming{Path: "/src/other.jpg", Fingerprint: fpA},
			targetDir: "/dest/2023_01_16",
			kind:      models.ConflictBoth,
			paths:     []string{"/dest/2023_01_16/other.jpg", "/dest/2022_05_01/zzz.jpg", "/dest/2023_01_15/photo.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.incoming, tt.targetDir)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.targetDir+"/"+tt.incoming.Name(), got.TargetPath)

			var paths []string
			for _, r := range got.Existing {
				paths = append(paths, r.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestClassifyFilenameOnlyCatalog(t *testing.T) {
	cat := catalog.New("/dest", false)
	cat.Insert(models.FileRecord{Path: "/dest/2023_01_15/a.jpg"})
	c := NewClassifier(cat)

	// Zero fingerprints never produce content conflicts
	got := c.Classify(models.Incoming{Path: "/src/b.jpg"}, "/dest/2023_01_15")
	require.Equal(t, models.ConflictNone, got.Kind)

	got = c.Classify(models.Incoming{Path: "/src/a.jpg"}, "/dest/2023_01_15")
	assert.Equal(t, models.ConflictFilenameOnly, got.Kind)
}
