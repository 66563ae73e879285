// Package conflict classifies how an incoming file collides with the destination
package conflict

import (
	"path/filepath"

	"github.com/sdejongh/orgphoto/pkg/models"
)

// Index is the catalog view the classifier needs
type Index interface {
	LookupByHash(fp models.Fingerprint) []models.FileRecord
	LookupByName(dir, name string) (models.FileRecord, bool)
}

// Classifier runs the two catalog queries for each incoming file
type Classifier struct {
	index Index
}

// NewClassifier creates a classifier over a catalog
func NewClassifier(index Index) *Classifier {
	return &Classifier{index: index}
}

// Classify looks up identical content anywhere in the destination and a
// same-name file inside targetDir
// The implicated records list the name occupant first, then content
// duplicates in path order, without repeats
func (c *Classifier) Classify(in models.Incoming, targetDir string) models.Conflict {
	name := in.Name()
	conflict := models.Conflict{
		Kind:       models.ConflictNone,
		Incoming:   in,
		TargetDir:  targetDir,
		TargetPath: filepath.Join(targetDir, name),
	}

	hashHits := c.index.LookupByHash(in.Fingerprint)
	nameHit, byName := c.index.LookupByName(targetDir, name)

	switch {
	case byName && len(hashHits) > 0:
		conflict.Kind = models.ConflictBoth
	case byName:
		conflict.Kind = models.ConflictFilenameOnly
	case len(hashHits) > 0:
		conflict.Kind = models.ConflictContentOnly
	default:
		return conflict
	}

	seen := make(map[string]bool)
	if byName {
		conflict.Existing = append(conflict.Existing, nameHit)
		seen[nameHit.Path] = true
	}
	for _, rec := range hashHits {
		if !seen[rec.Path] {
			conflict.Existing = append(conflict.Existing, rec)
			seen[rec.Path] = true
		}
	}

	return conflict
}
