package handlers

import (
	"net/http"
	"shelter-finder-service/internal/api/dto"
	"shelter-finder-service/internal/services"
)

// ShelterHandler exposes the loaded shelter directory.
type ShelterHandler struct {
	Directory *services.Directory
}

func (h *ShelterHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}

	locations := h.Directory.Snapshot()

	res := dto.ListSheltersResponse{
		Count:    len(locations),
		Shelters: make([]dto.ShelterResponse, 0, len(locations)),
	}
	for _, loc := range locations {
		res.Shelters = append(res.Shelters, dto.ShelterResponse{
			Address: loc.Address,
			Name:    loc.Name,
		})
	}
	if err := h.Directory.LoadErr(); err != nil {
		res.LoadError = err.Error()
	}

	writeJSON(w, r, http.StatusOK, res)
}
