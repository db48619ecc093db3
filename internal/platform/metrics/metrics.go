// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_resolutions_total",
		Help: "Nearest-shelter resolutions by outcome (ok, canceled, or the query error kind)",
	}, []string{"outcome"})
	ResolutionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelter_resolution_duration_ms",
		Help:    "End-to-end resolution duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_provider_requests_total",
		Help: "Map provider calls by provider, operation and outcome",
	}, []string{"provider", "op", "outcome"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shelter_provider_duration_ms",
		Help:    "Map provider call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"provider", "op"})
	StoreHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelter_coordinate_store_hits_total",
		Help: "Shelter coordinates served from the coordinate store",
	})
	StoreMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelter_coordinate_store_misses_total",
		Help: "Shelter coordinates that had to be geocoded",
	})
	DirectoryLocations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_directory_locations",
		Help: "Number of shelter locations in the loaded directory",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelter_active_sessions",
		Help: "Open presentation sessions",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelter_http_requests_total",
		Help: "HTTP requests by status code",
	}, []string{"code"})
)

func init() {
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(ResolutionDurationMs)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(StoreHitsTotal)
	prometheus.MustRegister(StoreMissesTotal)
	prometheus.MustRegister(DirectoryLocations)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
