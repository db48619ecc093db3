package services

import (
	"context"
	"shelter-finder-service/internal/adapters/mapsapi"
	"shelter-finder-service/internal/domain"
	"testing"
)

func TestWarmStore(t *testing.T) {
	dir := NewDirectory([]domain.ShelterLocation{
		{Address: "10 Main St"},
		{Address: "20 Oak Ave"},
		{Address: "20  OAK AVE"},
		{Address: "30 Pine Rd"},
	})
	provider := mapsapi.NewMockProvider([]mapsapi.MockPlace{
		{Address: "10 Main St", Coords: mainSt},
		{Address: "20 Oak Ave", Coords: oakAve},
	}, nil)

	store := &memoryStore{m: map[string]domain.Coordinates{
		domain.NormalizeAddress("10 Main St"): mainSt,
	}}

	report, err := WarmStore(context.Background(), dir, provider, store, 2)
	if err != nil {
		t.Fatalf("WarmStore: %v", err)
	}

	want := WarmReport{Locations: 4, Known: 1, Stored: 1, Failed: 1}
	if report != want {
		t.Fatalf("report = %+v, want %+v", report, want)
	}
	if got := store.m[domain.NormalizeAddress("20 Oak Ave")]; got != oakAve {
		t.Fatalf("stored = %+v, want %+v", got, oakAve)
	}

	// Known and duplicate addresses are not geocoded again.
	calls := provider.GeocodeCalls()
	if len(calls) != 2 {
		t.Fatalf("geocode calls = %v", calls)
	}
	for _, c := range calls {
		if c == "10 Main St" {
			t.Fatalf("known address was geocoded")
		}
	}
}

func TestWarmStoreRequiresStore(t *testing.T) {
	provider := mapsapi.NewMockProvider(nil, nil)
	if _, err := WarmStore(context.Background(), NewDirectory(nil), provider, nil, 0); err == nil {
		t.Fatalf("expected error without store")
	}
}
