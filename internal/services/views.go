package services

import (
	"cmp"
	"slices"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/ports"
)

// FlowNode is a location taking part in at least one action.
type FlowNode struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FlowEdge aggregates every action between a pair of locations in one tier.
type FlowEdge struct {
	SourceID      int         `json:"source_id"`
	DestinationID int         `json:"destination_id"`
	Tier          domain.Tier `json:"tier"`
	QuantityKg    float64     `json:"quantity_kg"`
}

type FlowGraph struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// BuildFlowGraph produces the data behind a flow (Sankey) diagram.
// Nodes are sorted by name, edges by source, destination and tier.
func BuildFlowGraph(actions []domain.CascadeAction) FlowGraph {
	names := make(map[int]string)
	type edgeKey struct {
		src, dst int
		tier     domain.Tier
	}
	sums := make(map[edgeKey]float64)

	for _, a := range actions {
		names[a.SourceID] = a.SourceName
		names[a.DestinationID] = a.DestinationName
		sums[edgeKey{a.SourceID, a.DestinationID, a.Tier}] += a.QuantityKg
	}

	g := FlowGraph{
		Nodes: make([]FlowNode, 0, len(names)),
		Edges: make([]FlowEdge, 0, len(sums)),
	}
	for id, name := range names {
		g.Nodes = append(g.Nodes, FlowNode{ID: id, Name: name})
	}
	slices.SortFunc(g.Nodes, func(a, b FlowNode) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	for k, kg := range sums {
		g.Edges = append(g.Edges, FlowEdge{SourceID: k.src, DestinationID: k.dst, Tier: k.tier, QuantityKg: kg})
	}
	slices.SortFunc(g.Edges, func(a, b FlowEdge) int {
		if c := cmp.Compare(a.SourceID, b.SourceID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DestinationID, b.DestinationID); c != 0 {
			return c
		}
		return cmp.Compare(a.Tier, b.Tier)
	})

	return g
}

// RouteSummary totals a set of routes for display.
type RouteSummary struct {
	Routes            int     `json:"routes"`
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalTimeMinutes  float64 `json:"total_time_minutes"`
	TotalLoadKg       float64 `json:"total_load_kg"`
	CarbonEmissionKg  float64 `json:"carbon_emission_kg"`
	AvgStopsPerRoute  float64 `json:"avg_stops_per_route"`
	Method            string  `json:"method"`
	EstimatedSavedCO2 float64 `json:"estimated_saved_co2_kg"`
}

// SummarizeRoutes totals routes. The savings estimate compares each route
// with serving every stop by its own round trip from the depot.
func SummarizeRoutes(routes []domain.Route, distance ports.DistanceProvider) RouteSummary {
	var s RouteSummary
	s.Routes = len(routes)
	if len(routes) == 0 {
		return s
	}

	stops := 0
	for _, r := range routes {
		s.TotalDistanceKm += r.TotalDistanceKm
		s.TotalTimeMinutes += r.TotalTimeMinutes
		s.TotalLoadKg += r.TotalLoadKg
		s.CarbonEmissionKg += r.CarbonEmissionKg
		stops += len(r.Stops)

		if s.Method == "" {
			s.Method = r.Method
		} else if s.Method != r.Method {
			s.Method = "mixed"
		}

		if distance != nil && len(r.Stops) > 1 {
			depot := r.Stops[0].Location.Coords
			naive := 0.0
			for _, st := range r.Stops[1:] {
				naive += 2 * distance.DistanceKm(depot, st.Location.Coords)
			}
			s.EstimatedSavedCO2 += carbon.RouteSavingsCO2(r.TotalDistanceKm, naive, r.TotalLoadKg)
		}
	}
	s.AvgStopsPerRoute = float64(stops) / float64(len(routes))
	return s
}

// Route colors cycle through this palette on the map.
var routePalette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#42d4f4", "#f032e6", "#469990",
}

type MapRoute struct {
	VehicleID   string      `json:"vehicle_id"`
	City        string      `json:"city"`
	Color       string      `json:"color"`
	Coordinates [][]float64 `json:"coordinates"`
}

// BuildMapData returns per-route coordinates in visiting order with a color.
func BuildMapData(routes []domain.Route) []MapRoute {
	out := make([]MapRoute, 0, len(routes))
	for i, r := range routes {
		out = append(out, MapRoute{
			VehicleID:   r.VehicleID,
			City:        r.City,
			Color:       routePalette[i%len(routePalette)],
			Coordinates: r.Coordinates(),
		})
	}
	return out
}
