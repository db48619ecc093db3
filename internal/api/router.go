package api

import (
	"net/http"
	"shelter-finder-service/internal/api/handlers"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/metrics"
	"shelter-finder-service/internal/presentation"
	"shelter-finder-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	dir *services.Directory,
	resolver presentation.Resolver,
	defaultMode domain.TravelMode,
	page []byte,
) http.Handler {
	mux := http.NewServeMux()

	shelterHandler := &handlers.ShelterHandler{Directory: dir}
	resolveHandler := &handlers.ResolveHandler{
		Resolver:    resolver,
		DefaultMode: defaultMode,
	}
	sessionHandler := &handlers.SessionHandler{
		Resolver:    resolver,
		DefaultMode: defaultMode,
		InitialErr:  dir.LoadErr(),
	}
	indexHandler := handlers.NewIndexHandler(page)

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/shelters", shelterHandler.List)
	mux.HandleFunc("/resolve", resolveHandler.Resolve)
	mux.HandleFunc("/ws", sessionHandler.Serve)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", indexHandler.Serve)

	return requestIDMiddleware(loggingMiddleware(recoveryMiddleware(mux)))
}
