package keyword

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasDuplicateKeyword(t *testing.T) {
	m := NewMatcher("variant")

	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", false},
		{"photo_copy.jpg", true},
		{"Copy of photo.jpg", true},
		{"photo-BACKUP.png", true},
		{"photo_alt.jpg", true},
		{"photo_alternative.jpg", true},
		{"photo kopie.jpg", true},
		{"photo_variant.jpg", true},
		{"photo (1).jpg", true},
		{"photo(12).jpg", true},
		{"photo_duplicate_001.jpg", true},
		{"photo_copy2.jpg", true},
		{"photocopy.jpg", false},
		{"altitude.jpg", false},
		{"versionless.jpg", false},
		{"IMG_20221023_171427392.jpg", false},
		{"photo (1) edited.jpg", false},
		{"photo_1.jpg", false},
		{"photo 2.jpg", true},
		{"photo 12.jpeg", true},
		{"2 photo.jpg", false},
		{"photo2.jpg", false},
		{"copy", true},
		{".copy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.HasDuplicateKeyword(tt.name))
		})
	}
}

func TestNewMatcherWords(t *testing.T) {
	m := NewMatcher("Duplicate", " ", "extra")
	words := m.Words()
	assert.Contains(t, words, "extra")
	assert.Len(t, words, len(DefaultWords)+1)
}

func TestScore(t *testing.T) {
	m := NewMatcher()
	ts := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	original := NewCandidate(m, "/dest/2023_01_15/photo.jpg", ts, true)
	copied := NewCandidate(m, "/src/photo_copy.jpg", ts.Add(24*time.Hour), false)

	assert.Equal(t, "photo", original.Stem)
	assert.Equal(t, ".jpg", original.Ext)
	assert.Equal(t, 5, original.NameLength)
	assert.True(t, original.Existing)

	so, sc := Score(original), Score(copied)
	assert.Equal(t, 0, so.Keyword)
	assert.Equal(t, 1, sc.Keyword)
	assert.True(t, so.Less(sc))
	assert.False(t, sc.Less(so))
}

func TestScoreCountsRunes(t *testing.T) {
	c := NewCandidate(NewMatcher(), "/src/été.jpg", time.Time{}, false)
	assert.Equal(t, 3, Score(c).NameLength)
}
