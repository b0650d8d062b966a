package handlers

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"surplus-redistribution-service/internal/api/dto"
	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/services"
)

// LocationHandler exposes read-only registry retrieval endpoints.
type LocationHandler struct {
	Engine *services.Engine
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	locs, err := h.Engine.Locations(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "list locations failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListLocationsResponse{
		Locations: make([]dto.LocationResponse, 0, len(locs)),
	}
	for _, l := range locs {
		res.Locations = append(res.Locations, dto.LocationResponse{
			ID:         l.ID,
			Name:       l.Name,
			Kind:       string(l.Kind),
			Lat:        l.Coords.Lat,
			Lon:        l.Coords.Lon,
			CapacityKg: l.CapacityKg,
			City:       l.City,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Equivalencies converts ?co2_kg= into everyday equivalents.
func Equivalencies(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	co2, err := strconv.ParseFloat(r.URL.Query().Get("co2_kg"), 64)
	if err != nil || co2 < 0 || math.IsNaN(co2) || math.IsInf(co2, 0) {
		writeError(w, r, http.StatusBadRequest, "co2_kg must be a non-negative number")
		return
	}

	writeJSON(w, r, http.StatusOK, carbon.Equivalent(co2))
}
