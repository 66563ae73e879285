package models

import (
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// FingerprintSize is the length in bytes of a content fingerprint (SHA-256)
const FingerprintSize = 32

// Fingerprint identifies file content
// The zero value means the content was not hashed
type Fingerprint [FingerprintSize]byte

// IsZero reports whether the fingerprint was never computed
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// String returns the lower-case hex encoding
func (f Fingerprint) String() string {
	if f.IsZero() {
		return ""
	}
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for log lines
func (f Fingerprint) Short() string {
	s := f.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// ParseFingerprint decodes a hex fingerprint
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	if s == "" {
		return fp, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fp, err
	}
	if len(b) != FingerprintSize {
		return fp, &ValidationError{Field: "fingerprint", Message: "must be 32 bytes"}
	}
	copy(fp[:], b)
	return fp, nil
}

// FileRecord represents a file known to be present in the destination tree
// Records are values: a demotion creates a new record rather than mutating one
type FileRecord struct {
	// Path is the absolute path on the filesystem
	Path string
	// Fingerprint is the content hash (zero for filename-only catalogs)
	Fingerprint Fingerprint
	// Size in bytes
	Size int64
	// ModTime is the last modification time
	ModTime time.Time
}

// Dir returns the directory holding the record
func (r FileRecord) Dir() string {
	return filepath.Dir(r.Path)
}

// Name returns the base name of the record
func (r FileRecord) Name() string {
	return filepath.Base(r.Path)
}

// Relocated returns a copy of the record at a new path
func (r FileRecord) Relocated(path string) FileRecord {
	r.Path = path
	return r
}

// SameContent reports whether both records carry the same non-zero fingerprint
func (r FileRecord) SameContent(fp Fingerprint) bool {
	return !fp.IsZero() && r.Fingerprint == fp
}

// SplitName splits a file name into stem and extension (extension keeps its dot)
func SplitName(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	stem = strings.TrimSuffix(name, ext)
	if stem == "" {
		// dot-files such as ".profile" have no extension
		return name, ""
	}
	return stem, ext
}
