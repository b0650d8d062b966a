package handlers

import (
	"net/http"

	"surplus-redistribution-service/internal/api/dto"
	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/services"
)

// CascadeHandler exposes cascade runs and action status tracking.
type CascadeHandler struct {
	Engine *services.Engine
}

// Run identifies today's surplus and allocates it across the tiers.
func (h *CascadeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.CascadeRunRequest
	if !decodeBody(w, r, &req) {
		return
	}

	persist := true
	if req.Persist != nil {
		persist = *req.Persist
	}

	run, err := h.Engine.RunCascade(r.Context(), services.RunCascadeRequest{
		HorizonDays:   req.HorizonDays,
		MaxDistanceKm: req.MaxDistanceKm,
		Persist:       persist,
	})
	if err != nil {
		writeServiceError(w, r, "run cascade", err)
		return
	}

	writeJSON(w, r, http.StatusOK, cascadeResponse(run))
}

// UpdateStatus moves a planned action to completed or cancelled.
func (h *CascadeHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ActionStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.Engine.UpdateActionStatus(r.Context(), req.ActionID, domain.Status(req.Status)); err != nil {
		writeServiceError(w, r, "update action status", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"action_id": req.ActionID, "status": req.Status})
}

func cascadeResponse(run *services.CascadeRun) dto.CascadeRunResponse {
	s := run.Summary
	res := dto.CascadeRunResponse{
		RunID:        run.RunID.String(),
		Persisted:    run.Persisted,
		SurplusItems: run.SurplusItems,
		Summary: dto.RunSummaryResponse{
			TotalActions:       s.TotalActions,
			TotalKg:            s.TotalKg,
			TotalCarbonSavedKg: s.TotalCarbonSavedKg,
			TotalCostSaved:     s.TotalCostSaved.StringFixed(2),
			UnresolvedKg:       s.UnresolvedKg,
			Tiers:              make(map[string]dto.TierSummaryResponse, len(s.Tiers)),
		},
		Actions:  make([]dto.ActionResponse, 0, len(run.Actions)),
		Flow:     run.Flow,
		Warnings: s.Warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	for tier, ts := range s.Tiers {
		res.Summary.Tiers[tier.String()] = dto.TierSummaryResponse{
			Kg:            ts.Kg,
			CarbonSavedKg: ts.CarbonSavedKg,
			CostSaved:     ts.CostSaved.StringFixed(2),
			Actions:       ts.Actions,
		}
	}

	for _, a := range run.Actions {
		res.Actions = append(res.Actions, dto.ActionResponse{
			SourceID:        a.SourceID,
			SourceName:      a.SourceName,
			DestinationID:   a.DestinationID,
			DestinationName: a.DestinationName,
			ProductID:       a.ProductID,
			ProductName:     a.ProductName,
			QuantityKg:      a.QuantityKg,
			Tier:            int(a.Tier),
			ActionType:      a.Tier.ActionType(),
			CarbonSavedKg:   a.CarbonSavedKg,
			CostSaved:       a.CostSaved.StringFixed(2),
			DistanceKm:      a.DistanceKm,
			Status:          string(a.Status),
			CreatedAt:       a.CreatedAt,
		})
	}

	return res
}
