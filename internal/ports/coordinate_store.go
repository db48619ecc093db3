package ports

import (
	"context"
	"shelter-finder-service/internal/domain"
)

// Port: persistent coordinates for directory entries, keyed by normalized
// address. Only shelter addresses are stored, never user queries.
type CoordinateStore interface {
	// Fetch stored coordinates; missing keys are absent from the result.
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	// Store address -> coordinate mappings.
	PutMany(ctx context.Context, coords map[string]domain.Coordinates) error
}
