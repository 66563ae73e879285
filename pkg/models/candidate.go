package models

import "time"

// Candidate is a scoring view over an incoming file or an existing record
type Candidate struct {
	Path       string
	Name       string
	Stem       string
	Ext        string
	Timestamp  time.Time
	HasKeyword bool
	NameLength int
	// Existing is true when the candidate is already in the destination
	Existing bool
}

// Score orders candidates by how likely they are to be the original file
// Lower is better
type Score struct {
	Keyword    int
	NameLength int
	Timestamp  time.Time
}

// Less reports whether s ranks strictly before o
func (s Score) Less(o Score) bool {
	if s.Keyword != o.Keyword {
		return s.Keyword < o.Keyword
	}
	if s.NameLength != o.NameLength {
		return s.NameLength < o.NameLength
	}
	return s.Timestamp.Before(o.Timestamp)
}

// Equal reports whether both scores tie on every criterion
func (s Score) Equal(o Score) bool {
	return s.Keyword == o.Keyword && s.NameLength == o.NameLength && s.Timestamp.Equal(o.Timestamp)
}
