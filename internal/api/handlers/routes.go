package handlers

import (
	"net/http"
	"strings"

	"surplus-redistribution-service/internal/api/dto"
	"surplus-redistribution-service/internal/services"
)

type RouteHandler struct {
	Engine *services.Engine
}

// Plan turns pending cascade actions into vehicle routes per city.
func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RoutePlanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	run, err := h.Engine.PlanRoutes(r.Context(), services.PlanRoutesInput{
		Vehicles: req.Vehicles,
		City:     strings.TrimSpace(req.City),
		Strategy: services.StrategyName(req.Strategy),
		Persist:  req.Persist,
	})
	if err != nil {
		writeServiceError(w, r, "plan routes", err)
		return
	}

	res := dto.RoutePlanResponse{
		RunID:     run.RunID.String(),
		Demo:      run.Plan.Demo,
		Persisted: run.Persisted,
		Routes:    make([]dto.RouteResponse, 0, len(run.Plan.Routes)),
		Summary:   run.Summary,
		Map:       run.Map,
		Unserved:  make([]dto.UnservedStopResponse, 0, len(run.Plan.Unserved)),
		Warnings:  run.Plan.Warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	for _, rt := range run.Plan.Routes {
		stops := make([]dto.RouteStopResponse, 0, len(rt.Stops))
		for _, s := range rt.Stops {
			stops = append(stops, dto.RouteStopResponse{
				LocationID: s.Location.ID,
				Name:       s.Location.Name,
				Lat:        s.Location.Coords.Lat,
				Lon:        s.Location.Coords.Lon,
				IsDepot:    s.IsDepot,
			})
		}

		res.Routes = append(res.Routes, dto.RouteResponse{
			VehicleID:        rt.VehicleID,
			City:             rt.City,
			Method:           rt.Method,
			TotalDistanceKm:  rt.TotalDistanceKm,
			TotalTimeMinutes: rt.TotalTimeMinutes,
			TotalLoadKg:      rt.TotalLoadKg,
			CarbonEmissionKg: rt.CarbonEmissionKg,
			Stops:            stops,
		})
	}

	for _, u := range run.Plan.Unserved {
		res.Unserved = append(res.Unserved, dto.UnservedStopResponse{
			City:       u.City,
			LocationID: u.LocationID,
			Name:       u.Name,
			DemandKg:   u.DemandKg,
			Reason:     u.Reason,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
