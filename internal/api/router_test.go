package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"shelter-finder-service/assets"
	"shelter-finder-service/internal/adapters/mapsapi"
	"shelter-finder-service/internal/api/dto"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/ports"
	"shelter-finder-service/internal/presentation"
	"shelter-finder-service/internal/services"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := services.NewDirectory([]domain.ShelterLocation{
		{Address: "10 Main St", Name: "Library"},
		{Address: "20 Oak Ave", Name: "Community Center"},
	})
	provider := mapsapi.NewMockProvider(
		[]mapsapi.MockPlace{
			{Address: "1 Elm St", Coords: domain.Coordinates{Lat: 40.0, Lon: -73.0}},
			{Address: "10 Main St", Coords: domain.Coordinates{Lat: 40.1, Lon: -73.1}},
			{Address: "20 Oak Ave", Coords: domain.Coordinates{Lat: 40.2, Lon: -73.2}},
			{Address: "Nowhere", Err: &ports.StatusError{Service: "geocode", Status: "ZERO_RESULTS"}},
		},
		[]mapsapi.MockLeg{
			{To: "10 Main St", Mode: domain.TravelModeDriving, Meters: 500, Seconds: 120},
			{To: "20 Oak Ave", Mode: domain.TravelModeDriving, Meters: 300, Seconds: 90},
			{To: "10 Main St", Mode: domain.TravelModeWalking, Meters: 200, Seconds: 300},
			{To: "20 Oak Ave", Mode: domain.TravelModeWalking, Meters: 290, Seconds: 240},
		},
	)
	resolver := services.NewResolver(dir, provider, provider, nil, services.ResolverConfig{})

	page, err := assets.IndexHTML()
	if err != nil {
		t.Fatalf("render page: %v", err)
	}

	srv := httptest.NewServer(NewRouter(dir, resolver, domain.TravelModeDriving, page))
	t.Cleanup(srv.Close)
	return srv
}

func postResolve(t *testing.T, srv *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Post(srv.URL+"/resolve", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /resolve: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestListShelters(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/shelters")
	if err != nil {
		t.Fatalf("GET /shelters: %v", err)
	}
	defer resp.Body.Close()

	var res dto.ListSheltersResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Count != 2 || res.Shelters[1].Address != "20 Oak Ave" || res.Shelters[1].Name != "Community Center" {
		t.Fatalf("shelters = %+v", res)
	}
	if res.LoadError != "" {
		t.Fatalf("load error = %q", res.LoadError)
	}
}

func TestResolveNearest(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		shelter  string
		distance int
		eta      string
	}{
		{"default mode", `{"address":"1 Elm St"}`, "20 Oak Ave", 300, "ETA (driving): 2 mins"},
		{"walking", `{"address":"1 Elm St","mode":"walking"}`, "10 Main St", 200, "ETA (walking): 5 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postResolve(t, srv, tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d body=%s", resp.StatusCode, data)
			}

			var res dto.ResolveResponse
			if err := json.Unmarshal(data, &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Shelter.Address != tt.shelter || res.DistanceMeters != tt.distance {
				t.Fatalf("got %s at %dm, want %s at %dm", res.Shelter.Address, res.DistanceMeters, tt.shelter, tt.distance)
			}
			if res.Directions != "Go to "+tt.shelter {
				t.Fatalf("directions = %q", res.Directions)
			}
			if res.ETA != tt.eta {
				t.Fatalf("eta = %q, want %q", res.ETA, tt.eta)
			}
		})
	}
}

func TestResolveQueryErrorIs422(t *testing.T) {
	srv := newTestServer(t)

	resp, data := postResolve(t, srv, `{"address":"Nowhere"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var res dto.ErrorResponse
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != string(domain.GeocodeFailed) || res.Error != "Error fetching geolocation data" {
		t.Fatalf("error body = %+v", res)
	}
}

func TestResolveBadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"address":`},
		{"unknown field", `{"address":"1 Elm St","hub":"x"}`},
		{"two objects", `{"address":"1 Elm St"}{"address":"1 Elm St"}`},
		{"blank address", `{"address":"   "}`},
		{"bad mode", `{"address":"1 Elm St","mode":"flying"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postResolve(t, srv, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", resp.StatusCode, data)
			}
		})
	}
}

func TestResolveMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/resolve")
	if err != nil {
		t.Fatalf("GET /resolve: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed || resp.Header.Get("Allow") != http.MethodPost {
		t.Fatalf("status = %d allow = %q", resp.StatusCode, resp.Header.Get("Allow"))
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("Local Weather Station")) {
		t.Fatalf("page shell missing header")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET /: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional status = %d", resp2.StatusCode)
	}

	resp3, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", resp3.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	postResolve(t, srv, `{"address":"1 Elm St"}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !bytes.Contains(body, []byte("shelter_resolutions_total")) {
		t.Fatalf("metrics missing resolutions counter")
	}
}

func readState(t *testing.T, conn *websocket.Conn) presentation.State {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var st presentation.State
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read state: %v", err)
	}
	return st
}

func TestWebSocketSession(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readState(t, conn)
	if first.Phase != presentation.PhaseIdle || first.Mode != domain.TravelModeDriving {
		t.Fatalf("first state = %+v", first)
	}

	for _, msg := range []string{
		`{"type":"mode","mode":"walking"}`,
		`{"type":"input","text":"1 Elm St"}`,
		`{"type":"submit"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write %s: %v", msg, err)
		}
	}

	// Intermediate snapshots may be coalesced; read until the outcome.
	var st presentation.State
	for st.Phase != presentation.PhaseResolved {
		st = readState(t, conn)
		if st.Phase == presentation.PhaseFailed {
			t.Fatalf("resolution failed: %+v", st)
		}
	}

	if !st.ShowResult || st.Result.Location.Address != "10 Main St" || st.Result.Mode != domain.TravelModeWalking {
		t.Fatalf("state = %+v", st)
	}
}
