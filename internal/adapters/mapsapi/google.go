package mapsapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/ports"
	"time"
)

const googleBaseURL = "https://maps.googleapis.com/maps/api"

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type googleValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string       `json:"status"`
			Distance *googleValue `json:"distance"`
			Duration *googleValue `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// GoogleProvider implements Geocoder and TravelEstimator on the Google
// Geocoding and Distance Matrix web services.
//
// The provider is safe for concurrent use.
type GoogleProvider struct {
	api    *apiClient
	apiKey string
	opts   Options
}

var (
	_ ports.Geocoder        = (*GoogleProvider)(nil)
	_ ports.TravelEstimator = (*GoogleProvider)(nil)
)

func NewGoogleProvider(apiKey string, opts Options) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	opts = opts.withDefaults(googleBaseURL)
	return &GoogleProvider{
		api:    newAPIClient("google", opts, nil),
		apiKey: apiKey,
		opts:   opts,
	}, nil
}

func (g *GoogleProvider) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "google.Geocode")(&err)
	defer func(start time.Time) { g.api.observe("geocode", start, err) }(time.Now())

	if address == "" {
		return domain.Coordinates{}, errors.New("google geocode: address must be non-empty")
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)
	if g.opts.Region != "" {
		q.Set("region", g.opts.Region)
	}
	endpoint := g.opts.BaseURL + "/geocode/json?" + q.Encode()

	var decoded googleGeocodeResponse
	err = g.api.fetchJSON(ctx, func() (*http.Request, error) {
		return g.api.newRequest(ctx, http.MethodGet, endpoint, nil)
	}, &decoded)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w", address, err)
	}

	if decoded.Status != "OK" {
		return domain.Coordinates{}, &ports.StatusError{
			Service: "google geocode",
			Status:  decoded.Status,
			Message: decoded.ErrorMessage,
		}
	}
	if len(decoded.Results) == 0 {
		return domain.Coordinates{}, &ports.StatusError{Service: "google geocode", Status: "ZERO_RESULTS"}
	}

	loc := decoded.Results[0].Geometry.Location
	return domain.Coordinates{Lat: loc.Lat, Lon: loc.Lng}, nil
}

func (g *GoogleProvider) Estimate(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	mode domain.TravelMode,
) (_ domain.TravelEstimate, err error) {
	defer obs.Time(ctx, "google.Estimate")(&err)
	defer func(start time.Time) { g.api.observe("estimate", start, err) }(time.Now())

	q := url.Values{}
	q.Set("origins", origin.LatLng())
	q.Set("destinations", destination.LatLng())
	q.Set("mode", mode.String())
	q.Set("key", g.apiKey)
	endpoint := g.opts.BaseURL + "/distancematrix/json?" + q.Encode()

	var decoded googleMatrixResponse
	err = g.api.fetchJSON(ctx, func() (*http.Request, error) {
		return g.api.newRequest(ctx, http.MethodGet, endpoint, nil)
	}, &decoded)
	if err != nil {
		return domain.TravelEstimate{}, fmt.Errorf("google distance matrix: %w", err)
	}

	if decoded.Status != "OK" {
		return domain.TravelEstimate{}, &ports.StatusError{
			Service: "google distance matrix",
			Status:  decoded.Status,
			Message: decoded.ErrorMessage,
		}
	}
	if len(decoded.Rows) != 1 || len(decoded.Rows[0].Elements) != 1 {
		return domain.TravelEstimate{}, fmt.Errorf("%w: google distance matrix: expected a 1x1 matrix", ports.ErrUnavailable)
	}

	el := decoded.Rows[0].Elements[0]
	if el.Status != "OK" {
		return domain.TravelEstimate{}, &ports.StatusError{Service: "google distance matrix element", Status: el.Status}
	}
	if el.Distance == nil || el.Duration == nil {
		return domain.TravelEstimate{}, &ports.StatusError{Service: "google distance matrix element", Status: "MISSING_METRICS"}
	}

	text := el.Duration.Text
	if text == "" {
		text = domain.DurationText(el.Duration.Value)
	}

	return domain.TravelEstimate{
		DistanceMeters:  el.Distance.Value,
		DurationSeconds: el.Duration.Value,
		DurationText:    text,
	}, nil
}
