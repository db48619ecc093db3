package ports

import (
	"context"
	"shelter-finder-service/internal/domain"
)

// Contract for retrieving travel distance and duration between two points.
type TravelEstimator interface {
	// Return travel distance and estimated duration from origin to destination.
	Estimate(
		ctx context.Context,
		origin domain.Coordinates,
		destination domain.Coordinates,
		mode domain.TravelMode,
	) (domain.TravelEstimate, error)
}
