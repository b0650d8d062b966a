package dto

import "surplus-redistribution-service/internal/services"

type RoutePlanRequest struct {
	Vehicles int    `json:"vehicles" validate:"omitempty,gte=1,lte=10"`
	City     string `json:"city" validate:"omitempty,max=100"`
	Strategy string `json:"strategy" validate:"omitempty,oneof=auto constrained greedy"`
	Persist  bool   `json:"persist"`
}

type RouteStopResponse struct {
	LocationID int     `json:"location_id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	IsDepot    bool    `json:"is_depot"`
}

type RouteResponse struct {
	VehicleID        string              `json:"vehicle_id"`
	City             string              `json:"city"`
	Method           string              `json:"method"`
	TotalDistanceKm  float64             `json:"total_distance_km"`
	TotalTimeMinutes float64             `json:"total_time_minutes"`
	TotalLoadKg      float64             `json:"total_load_kg"`
	CarbonEmissionKg float64             `json:"carbon_emission_kg"`
	Stops            []RouteStopResponse `json:"stops"`
}

type UnservedStopResponse struct {
	City       string  `json:"city"`
	LocationID int     `json:"location_id"`
	Name       string  `json:"name"`
	DemandKg   float64 `json:"demand_kg"`
	Reason     string  `json:"reason"`
}

type RoutePlanResponse struct {
	RunID     string                 `json:"run_id"`
	Demo      bool                   `json:"demo"`
	Persisted bool                   `json:"persisted"`
	Routes    []RouteResponse        `json:"routes"`
	Summary   services.RouteSummary  `json:"summary"`
	Map       []services.MapRoute    `json:"map"`
	Unserved  []UnservedStopResponse `json:"unserved"`
	Warnings  []string               `json:"warnings"`
}
