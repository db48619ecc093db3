package services

import (
	"context"
	"fmt"
	"shelter-finder-service/internal/adapters/directory"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/metrics"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/ports"
)

type LoadErrorKind string

const (
	DownloadError LoadErrorKind = "download_error"
	ParseError    LoadErrorKind = "parse_error"
)

// LoadError reports why the shelter directory could not be loaded.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load directory %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UserMessage is shown by presentation sessions when the directory is unusable.
func (e *LoadError) UserMessage() string {
	return "Error fetching shelter directory"
}

// Directory is the immutable snapshot of known shelter locations.
// It is loaded once per process; there is no refresh.
type Directory struct {
	locations []domain.ShelterLocation
	loadErr   error
}

// NewDirectory builds a snapshot from already-parsed locations.
func NewDirectory(locations []domain.ShelterLocation) *Directory {
	return &Directory{locations: append([]domain.ShelterLocation(nil), locations...)}
}

// LoadDirectory fetches and parses the directory document.
// It always returns a usable Directory: on failure the snapshot is empty,
// LoadErr reports the *LoadError, and the same error is returned.
func LoadDirectory(ctx context.Context, src ports.DocumentSource) (_ *Directory, err error) {
	defer obs.Time(ctx, "directory.Load")(&err)

	dir := &Directory{}
	defer func() {
		dir.loadErr = err
		metrics.DirectoryLocations.Set(float64(len(dir.locations)))
	}()

	rc, err := src.Open(ctx)
	if err != nil {
		return dir, &LoadError{Kind: DownloadError, Source: src.Describe(), Err: err}
	}
	defer rc.Close()

	locations, err := directory.ParseKML(rc)
	if err != nil {
		kind := DownloadError
		if directory.IsSyntaxError(err) {
			kind = ParseError
		}
		return dir, &LoadError{Kind: kind, Source: src.Describe(), Err: err}
	}

	dir.locations = locations
	return dir, nil
}

// Snapshot returns a copy of the locations in document order.
func (d *Directory) Snapshot() []domain.ShelterLocation {
	return append([]domain.ShelterLocation(nil), d.locations...)
}

func (d *Directory) Len() int { return len(d.locations) }

// LoadErr is the error of the load that produced this snapshot, if any.
func (d *Directory) LoadErr() error { return d.loadErr }
