package ports

import (
	"context"
	"errors"
	"fmt"
	"shelter-finder-service/internal/domain"
)

// ErrUnavailable marks provider failures that happened before a provider
// answer could be read: transport errors, non-2xx HTTP responses, and
// undecodable bodies.
var ErrUnavailable = errors.New("provider unavailable")

// StatusError is a well-formed provider answer that reports no usable result
// (e.g. ZERO_RESULTS, NOT_FOUND, REQUEST_DENIED).
type StatusError struct {
	Service string
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s status %s: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s status %s", e.Service, e.Status)
}

// Contract for converting a free-text address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
