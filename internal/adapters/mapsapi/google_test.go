package mapsapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/ports"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newGoogleTestProvider(t *testing.T, h http.HandlerFunc, opts Options) *GoogleProvider {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL
	p, err := NewGoogleProvider("test-key", opts)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestGoogleGeocode(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != "1 Elm St" {
			t.Errorf("address = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.5,"lng":-73.25}}}]}`))
	}, Options{})

	got, err := p.Geocode(context.Background(), "1 Elm St")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (domain.Coordinates{Lat: 40.5, Lon: -73.25}) {
		t.Fatalf("coords = %+v", got)
	}
}

func TestGoogleGeocodeStatusFailure(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}, Options{})

	_, err := p.Geocode(context.Background(), "nowhere")
	var se *ports.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != "ZERO_RESULTS" {
		t.Fatalf("status = %q", se.Status)
	}
	if errors.Is(err, ports.ErrUnavailable) {
		t.Fatal("status failure must not be reported as unavailable")
	}
}

func TestGoogleGeocodeHTTPFailureIsUnavailable(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, Options{})

	_, err := p.Geocode(context.Background(), "1 Elm St")
	if !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGoogleTransportFailureHidesAPIKey(t *testing.T) {
	// A closed server gives a connection error carrying the request URL.
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	const key = "SECRET-KEY-123"
	p, err := NewGoogleProvider(key, Options{BaseURL: base})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	_, err = p.Geocode(context.Background(), "1 Elm St")
	if !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if strings.Contains(err.Error(), key) {
		t.Fatalf("api key in geocode error: %v", err)
	}
	if !strings.Contains(err.Error(), "key=REDACTED") {
		t.Fatalf("expected redacted key in %v", err)
	}

	_, err = p.Estimate(context.Background(), domain.Coordinates{Lat: 1, Lon: 2}, domain.Coordinates{Lat: 3, Lon: 4}, domain.TravelModeDriving)
	if err == nil || strings.Contains(err.Error(), key) {
		t.Fatalf("api key in estimate error: %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://h/geocode/json?address=1+Elm+St&key=abc", "http://h/geocode/json?address=1+Elm+St&key=REDACTED"},
		{"http://h/v2/matrix?api_key=abc", "http://h/v2/matrix?api_key=REDACTED"},
		{"http://h/geocode/search?text=x", "http://h/geocode/search?text=x"},
	}

	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	err := redactURLError(&url.Error{Op: "Get", URL: "http://h/?key=abc", Err: errors.New("refused")})
	if strings.Contains(err.Error(), "abc") {
		t.Fatalf("redactURLError leaked key: %v", err)
	}
}

func TestGoogleEstimate(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/distancematrix/json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("mode"); got != "walking" {
			t.Errorf("mode = %q", got)
		}
		w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK",
			"distance":{"value":1234,"text":"1.2 km"},
			"duration":{"value":900,"text":"15 mins"}}]}]}`))
	}, Options{})

	got, err := p.Estimate(context.Background(),
		domain.Coordinates{Lat: 1, Lon: 2}, domain.Coordinates{Lat: 3, Lon: 4}, domain.TravelModeWalking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.TravelEstimate{DistanceMeters: 1234, DurationSeconds: 900, DurationText: "15 mins"}
	if got != want {
		t.Fatalf("estimate = %+v, want %+v", got, want)
	}
}

func TestGoogleEstimateElementStatus(t *testing.T) {
	p := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"ZERO_RESULTS"}]}]}`))
	}, Options{})

	_, err := p.Estimate(context.Background(),
		domain.Coordinates{}, domain.Coordinates{Lat: 1}, domain.TravelModeDriving)
	var se *ports.StatusError
	if !errors.As(err, &se) || se.Status != "ZERO_RESULTS" {
		t.Fatalf("expected ZERO_RESULTS StatusError, got %v", err)
	}
}

func TestRetryOnlyWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	h := func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":1,"lng":2}}}]}`))
	}

	single := newGoogleTestProvider(t, h, Options{})
	if _, err := single.Geocode(context.Background(), "x"); err == nil {
		t.Fatal("expected failure without retries")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}

	calls.Store(0)
	retrying := newGoogleTestProvider(t, h, Options{RetryAttempts: 3, RetryBackoff: time.Millisecond})
	if _, err := retrying.Geocode(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}
