package mapsapi

import (
	"context"
	"fmt"
	"shelter-finder-service/internal/domain"
	"sync"
)

// MockPlace is an address the mock can geocode.
type MockPlace struct {
	Address string
	Coords  domain.Coordinates
	Err     error
}

// MockLeg is a travel estimate towards a known address. An empty Mode
// matches every mode; an exact Mode match wins over it.
type MockLeg struct {
	To      string
	Mode    domain.TravelMode
	Meters  int
	Seconds int
	Err     error
}

// MockProvider is a deterministic in-memory Geocoder and TravelEstimator.
// It records every call so tests can assert on request fan-out.
type MockProvider struct {
	places map[string]MockPlace
	legs   []MockLeg

	// BeforeEstimate, when set, runs before each estimate lookup. Returning
	// an error fails that estimate.
	BeforeEstimate func(ctx context.Context, to string, mode domain.TravelMode) error

	mu            sync.Mutex
	geocodeCalls  []string
	estimateCalls []string
}

func NewMockProvider(places []MockPlace, legs []MockLeg) *MockProvider {
	m := make(map[string]MockPlace, len(places))
	for _, p := range places {
		m[p.Address] = p
	}
	return &MockProvider{places: m, legs: legs}
}

func (p *MockProvider) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	p.mu.Lock()
	p.geocodeCalls = append(p.geocodeCalls, address)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}

	place, ok := p.places[address]
	if !ok {
		return domain.Coordinates{}, fmt.Errorf("missing place %q", address)
	}
	if place.Err != nil {
		return domain.Coordinates{}, place.Err
	}
	return place.Coords, nil
}

func (p *MockProvider) Estimate(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	mode domain.TravelMode,
) (domain.TravelEstimate, error) {
	to := p.addressAt(destination)

	p.mu.Lock()
	p.estimateCalls = append(p.estimateCalls, to+"|"+mode.String())
	p.mu.Unlock()

	if p.BeforeEstimate != nil {
		if err := p.BeforeEstimate(ctx, to, mode); err != nil {
			return domain.TravelEstimate{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.TravelEstimate{}, err
	}

	var found *MockLeg
	for i := range p.legs {
		leg := &p.legs[i]
		if leg.To != to {
			continue
		}
		if leg.Mode == mode {
			found = leg
			break
		}
		if leg.Mode == "" && found == nil {
			found = leg
		}
	}
	if found == nil {
		return domain.TravelEstimate{}, fmt.Errorf("missing leg to %q (%s)", to, mode)
	}
	if found.Err != nil {
		return domain.TravelEstimate{}, found.Err
	}

	return domain.TravelEstimate{
		DistanceMeters:  found.Meters,
		DurationSeconds: found.Seconds,
		DurationText:    domain.DurationText(found.Seconds),
	}, nil
}

// GeocodeCalls returns the addresses geocoded so far, in call order.
func (p *MockProvider) GeocodeCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.geocodeCalls...)
}

// EstimateCalls returns "address|mode" for every estimate requested so far.
func (p *MockProvider) EstimateCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.estimateCalls...)
}

func (p *MockProvider) addressAt(c domain.Coordinates) string {
	for addr, place := range p.places {
		if place.Coords == c {
			return addr
		}
	}
	return c.LatLng()
}
