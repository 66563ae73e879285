// Package metadata dates files for placement
//
// The creation date comes from embedded EXIF data when present; the
// filesystem modification time is the fallback.
package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/sdejongh/orgphoto/pkg/storage"
)

// Extractor reads an embedded creation timestamp
// ok is false when the file carries none
type Extractor interface {
	CreationTime(ctx context.Context, path string) (t time.Time, ok bool, err error)
}

// ExifExtractor reads DateTimeOriginal (or DateTime) from EXIF data
type ExifExtractor struct {
	backend storage.Backend
}

// NewExifExtractor creates an extractor reading through backend
func NewExifExtractor(backend storage.Backend) *ExifExtractor {
	return &ExifExtractor{backend: backend}
}

// CreationTime returns the EXIF date of the file at path
// Unreadable files are errors; files without EXIF data are not
func (e *ExifExtractor) CreationTime(ctx context.Context, path string) (time.Time, bool, error) {
	reader, err := e.backend.Read(ctx, path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	x, err := exif.Decode(reader)
	if err != nil {
		// Not an image, or no EXIF segment
		return time.Time{}, false, nil
	}

	t, err := x.DateTime()
	if err != nil || t.IsZero() {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// FSDater returns the modification time of a file
type FSDater struct {
	backend storage.Backend
}

// NewFSDater creates a filesystem dater
func NewFSDater(backend storage.Backend) *FSDater {
	return &FSDater{backend: backend}
}

// ModTime returns the modification time of path
func (d *FSDater) ModTime(ctx context.Context, path string) (time.Time, error) {
	info, err := d.backend.Stat(ctx, path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.ModTime, nil
}

// Date is the outcome of dating one file
type Date struct {
	Time time.Time
	// FromMetadata is true when Time came from embedded metadata
	FromMetadata bool
}

// Dater combines the extractor with the filesystem fallback
type Dater struct {
	extractor Extractor
	fs        *FSDater
}

// NewDater creates a dater; a nil extractor dates by modification time only
func NewDater(extractor Extractor, backend storage.Backend) *Dater {
	return &Dater{extractor: extractor, fs: NewFSDater(backend)}
}

// Lookup dates path, preferring embedded metadata
func (d *Dater) Lookup(ctx context.Context, path string) (Date, error) {
	if d.extractor != nil {
		t, ok, err := d.extractor.CreationTime(ctx, path)
		if err != nil {
			return Date{}, err
		}
		if ok {
			return Date{Time: t, FromMetadata: true}, nil
		}
	}

	t, err := d.fs.ModTime(ctx, path)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Date returns the creation date of path
func (d *Dater) Date(ctx context.Context, path string) (time.Time, error) {
	date, err := d.Lookup(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return date.Time, nil
}
