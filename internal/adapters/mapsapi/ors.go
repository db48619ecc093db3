package mapsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/ports"
	"time"
)

const orsBaseURL = "https://api.openrouteservice.org"

type orsGeocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

type orsMatrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type orsMatrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// ORSProvider implements Geocoder and TravelEstimator using OpenRouteService.
//
// The provider is safe for concurrent use.
type ORSProvider struct {
	api  *apiClient
	opts Options
}

var (
	_ ports.Geocoder        = (*ORSProvider)(nil)
	_ ports.TravelEstimator = (*ORSProvider)(nil)
)

func NewORSProvider(apiKey string, opts Options) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	opts = opts.withDefaults(orsBaseURL)
	header := http.Header{}
	header.Set("Authorization", apiKey)

	return &ORSProvider{
		api:  newAPIClient("ors", opts, header),
		opts: opts,
	}, nil
}

// orsProfile maps a travel mode onto an ORS routing profile.
func orsProfile(mode domain.TravelMode) string {
	if mode == domain.TravelModeWalking {
		return "foot-walking"
	}
	return "driving-car"
}

// Geocode resolves one address with /geocode/search, keeping the top feature.
func (o *ORSProvider) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)
	defer func(start time.Time) { o.api.observe("geocode", start, err) }(time.Now())

	if address == "" {
		return domain.Coordinates{}, errors.New("ors geocode: address must be non-empty")
	}

	endpoint := o.opts.BaseURL + "/geocode/search"

	var decoded orsGeocodeResponse
	err = o.api.fetchJSON(ctx, func() (*http.Request, error) {
		req, err := o.api.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		if o.opts.Region != "" {
			q.Set("boundary.country", o.opts.Region)
		}
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	}, &decoded)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: %w", address, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, &ports.StatusError{Service: "ors geocode", Status: "NO_RESULTS"}
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("%w: ors geocode: invalid coordinate format for %q", ports.ErrUnavailable, address)
	}

	return domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}

// Estimate asks the matrix endpoint for a single origin -> destination cell.
func (o *ORSProvider) Estimate(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	mode domain.TravelMode,
) (_ domain.TravelEstimate, err error) {
	defer obs.Time(ctx, "ors.Estimate")(&err)
	defer func(start time.Time) { o.api.observe("estimate", start, err) }(time.Now())

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.opts.BaseURL, orsProfile(mode))

	payload, err := json.Marshal(orsMatrixRequest{
		Locations:    [][]float64{origin.CoordsToList(), destination.CoordsToList()},
		Destinations: []int{1},
		Metrics:      []string{"distance", "duration"},
		Sources:      []int{0},
	})
	if err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	var mr orsMatrixResponse
	err = o.api.fetchJSON(ctx, func() (*http.Request, error) {
		return o.api.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	}, &mr)
	if err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("ors matrix: %w", err)
	}

	if len(mr.Distances) != 1 || len(mr.Durations) != 1 ||
		len(mr.Distances[0]) != 1 || len(mr.Durations[0]) != 1 {
		return domain.TravelEstimate{}, fmt.Errorf(
			"%w: ors matrix: expected a 1x1 matrix; got distances=%d durations=%d",
			ports.ErrUnavailable, len(mr.Distances), len(mr.Durations),
		)
	}

	metersPtr := mr.Distances[0][0]
	secondsPtr := mr.Durations[0][0]
	if metersPtr == nil || secondsPtr == nil {
		// ORS reports unroutable pairs as null cells.
		return domain.TravelEstimate{}, &ports.StatusError{Service: "ors matrix", Status: "NO_ROUTE"}
	}

	// ORS returns float metrics; round to nearest integer for domain consistency.
	seconds := int(math.Round(*secondsPtr))
	return domain.TravelEstimate{
		DistanceMeters:  int(math.Round(*metersPtr)),
		DurationSeconds: seconds,
		DurationText:    domain.DurationText(seconds),
	}, nil
}
