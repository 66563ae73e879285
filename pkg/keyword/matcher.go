// Package keyword detects duplicate-marker names and scores master candidates
package keyword

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// DefaultWords are the words other programs use to mark copies of a file
var DefaultWords = []string{
	"copy", "duplicate", "version", "backup", "alt", "alternative",
	"copie", "kopie", "copia",
}

// Matcher decides whether a file name looks like a duplicate of another file
type Matcher interface {
	HasDuplicateKeyword(name string) bool
}

// RegexpMatcher is the default Matcher
// A name matches when its lower-cased stem
//   - contains a vocabulary word not adjacent to another letter ("photo_copy", "copy of photo")
//   - ends with a numeric parenthetical ("photo (1)")
//   - ends with a numbered marker ("photo_duplicate_001", "photo-copy2")
//   - ends with a space and a number, as file managers name copies ("photo 2")
//
// Digit runs elsewhere in the stem never match, so timestamps are safe
type RegexpMatcher struct {
	words      []string
	wordRe     *regexp.Regexp
	parenRe    *regexp.Regexp
	numberedRe *regexp.Regexp
	spaceNumRe *regexp.Regexp
}

// NewMatcher builds a matcher over DefaultWords plus extra words
// Extra words are typically the configured duplicate keyword
func NewMatcher(extra ...string) *RegexpMatcher {
	seen := make(map[string]bool)
	var words []string
	for _, w := range append(append([]string{}, DefaultWords...), extra...) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}

	// Longest first so "alternative" is tried before "alt"
	sorted := append([]string{}, words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	alt := strings.Join(quoted, "|")

	return &RegexpMatcher{
		words:      words,
		wordRe:     regexp.MustCompile(`(?:^|[^\p{L}])(?:` + alt + `)(?:[^\p{L}]|$)`),
		parenRe:    regexp.MustCompile(`\(\d+\)$`),
		numberedRe: regexp.MustCompile(`[_\- ](?:` + alt + `)[_\- ]?\d+$`),
		spaceNumRe: regexp.MustCompile(` \d+$`),
	}
}

// Words returns the vocabulary in use
func (m *RegexpMatcher) Words() []string {
	return append([]string{}, m.words...)
}

// HasDuplicateKeyword reports whether name carries a duplicate marker
func (m *RegexpMatcher) HasDuplicateKeyword(name string) bool {
	stem, _ := models.SplitName(filepath.Base(name))
	stem = strings.ToLower(stem)

	return m.parenRe.MatchString(stem) ||
		m.numberedRe.MatchString(stem) ||
		m.spaceNumRe.MatchString(stem) ||
		m.wordRe.MatchString(stem)
}

// NewCandidate builds the scoring view of a file
func NewCandidate(m Matcher, path string, timestamp time.Time, existing bool) models.Candidate {
	name := filepath.Base(path)
	stem, ext := models.SplitName(name)
	return models.Candidate{
		Path:       path,
		Name:       name,
		Stem:       stem,
		Ext:        ext,
		Timestamp:  timestamp,
		HasKeyword: m.HasDuplicateKeyword(name),
		NameLength: utf8.RuneCountInString(stem),
		Existing:   existing,
	}
}

// Score ranks a candidate: no keyword, then shorter stem, then older timestamp
func Score(c models.Candidate) models.Score {
	kw := 0
	if c.HasKeyword {
		kw = 1
	}
	return models.Score{
		Keyword:    kw,
		NameLength: c.NameLength,
		Timestamp:  c.Timestamp,
	}
}
