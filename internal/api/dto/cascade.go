package dto

import (
	"time"

	"surplus-redistribution-service/internal/services"
)

type CascadeRunRequest struct {
	HorizonDays   int     `json:"horizon_days" validate:"omitempty,gte=1,lte=30"`
	MaxDistanceKm float64 `json:"max_distance_km" validate:"omitempty,gt=0,lte=1000"`
	// Persist defaults to true.
	Persist *bool `json:"persist"`
}

type TierSummaryResponse struct {
	Kg            float64 `json:"kg"`
	CarbonSavedKg float64 `json:"carbon_saved_kg"`
	CostSaved     string  `json:"cost_saved"`
	Actions       int     `json:"actions"`
}

type RunSummaryResponse struct {
	TotalActions       int                            `json:"total_actions"`
	TotalKg            float64                        `json:"total_kg"`
	TotalCarbonSavedKg float64                        `json:"total_carbon_saved_kg"`
	TotalCostSaved     string                         `json:"total_cost_saved"`
	UnresolvedKg       float64                        `json:"unresolved_kg"`
	Tiers              map[string]TierSummaryResponse `json:"tiers"`
}

type ActionResponse struct {
	SourceID        int       `json:"source_id"`
	SourceName      string    `json:"source_name"`
	DestinationID   int       `json:"destination_id"`
	DestinationName string    `json:"destination_name"`
	ProductID       int       `json:"product_id"`
	ProductName     string    `json:"product_name"`
	QuantityKg      float64   `json:"quantity_kg"`
	Tier            int       `json:"tier"`
	ActionType      string    `json:"action_type"`
	CarbonSavedKg   float64   `json:"carbon_saved_kg"`
	CostSaved       string    `json:"cost_saved"`
	DistanceKm      float64   `json:"distance_km"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type CascadeRunResponse struct {
	RunID        string             `json:"run_id"`
	Persisted    bool               `json:"persisted"`
	SurplusItems int                `json:"surplus_items"`
	Summary      RunSummaryResponse `json:"summary"`
	Actions      []ActionResponse   `json:"actions"`
	Flow         services.FlowGraph `json:"flow"`
	Warnings     []string           `json:"warnings"`
}

// StageErrorResponse reports where an unexpected failure stopped a run.
type StageErrorResponse struct {
	Error           string `json:"error"`
	Stage           string `json:"stage"`
	ItemsProcessed  int    `json:"items_processed"`
	ActionsProduced int    `json:"actions_produced"`
}

type ActionStatusRequest struct {
	ActionID int64  `json:"action_id" validate:"gt=0"`
	Status   string `json:"status" validate:"oneof=completed cancelled"`
}
