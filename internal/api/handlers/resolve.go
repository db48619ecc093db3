package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"shelter-finder-service/internal/api/dto"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/presentation"
	"shelter-finder-service/internal/services"
	"strings"

	"github.com/rs/zerolog/log"
)

type ResolveHandler struct {
	Resolver    presentation.Resolver
	DefaultMode domain.TravelMode
}

// Resolve finds the nearest shelter for one address in a single request.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodPost) {
		return
	}

	var req dto.ResolveRequest

	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	if strings.TrimSpace(req.Address) == "" {
		writeError(w, r, http.StatusBadRequest, "address is required")
		return
	}

	mode := h.DefaultMode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, err := domain.ParseTravelMode(req.Mode)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "mode must be walking or driving")
			return
		}
		mode = parsed
	}

	res, err := h.Resolver.Resolve(r.Context(), req.Address, mode)
	if err != nil {
		h.writeResolveError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toResolveResponse(res))
}

func (h *ResolveHandler) writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	var qe *domain.QueryError
	switch {
	case errors.As(err, &qe):
		writeJSON(w, r, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: qe.UserMessage(),
			Kind:  string(qe.Kind),
		})
	case errors.Is(err, services.ErrEmptyQuery):
		writeError(w, r, http.StatusBadRequest, "address is required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request canceled")
	default:
		log.Error().Str("req_id", obs.RequestID(r.Context())).Err(err).Msg("resolve failed")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toResolveResponse(res *domain.ResolutionResult) dto.ResolveResponse {
	return dto.ResolveResponse{
		Query: res.Query,
		Mode:  res.Mode.String(),
		Shelter: dto.ShelterResponse{
			Address: res.Location.Address,
			Name:    res.Location.Name,
		},
		DistanceMeters:  res.Estimate.DistanceMeters,
		DurationSeconds: res.Estimate.DurationSeconds,
		DurationText:    res.Estimate.DurationText,
		Origin:          dto.CoordinatesResponse{Lat: res.Origin.Lat, Lon: res.Origin.Lon},
		Destination:     dto.CoordinatesResponse{Lat: res.Destination.Lat, Lon: res.Destination.Lon},
		Directions:      fmt.Sprintf("Go to %s", res.Location.Address),
		ETA:             fmt.Sprintf("ETA (%s): %s", res.Mode, res.Estimate.DurationText),
	}
}
