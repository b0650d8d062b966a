package services

import (
	"context"
	"fmt"
	"time"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/domain"
)

// Routing defaults.
const (
	DefaultVehicleCapacityKg = 2000.0
	DefaultVehicleSpeedKmh   = 40.0
	DefaultMaxRouteMinutes   = 480.0
	DefaultMaxRouteKm        = 300.0
	DefaultSolveBudget       = 5 * time.Second
	DefaultVehicles          = 3
	MaxVehicles              = 10
)

// StrategyName selects how city problems are solved.
type StrategyName string

const (
	// StrategyAuto uses the constrained solver and falls back to greedy routing.
	StrategyAuto        StrategyName = "auto"
	StrategyConstrained StrategyName = "constrained"
	StrategyGreedy      StrategyName = "greedy"
)

func (s StrategyName) Valid() bool {
	switch s {
	case StrategyAuto, StrategyConstrained, StrategyGreedy:
		return true
	}
	return false
}

// RouteOptions are the fleet limits applied to every city problem.
type RouteOptions struct {
	Vehicles       int
	CapacityKg     float64
	SpeedKmh       float64
	MaxDurationMin float64
	MaxRouteKm     float64
	SolveBudget    time.Duration
	Strategy       StrategyName
}

func DefaultRouteOptions() RouteOptions {
	return RouteOptions{
		Vehicles:       DefaultVehicles,
		CapacityKg:     DefaultVehicleCapacityKg,
		SpeedKmh:       DefaultVehicleSpeedKmh,
		MaxDurationMin: DefaultMaxRouteMinutes,
		MaxRouteKm:     DefaultMaxRouteKm,
		SolveBudget:    DefaultSolveBudget,
		Strategy:       StrategyAuto,
	}
}

// withDefaults fills zero values from DefaultRouteOptions.
func (o RouteOptions) withDefaults() RouteOptions {
	d := DefaultRouteOptions()
	if o.Vehicles <= 0 {
		o.Vehicles = d.Vehicles
	}
	if o.CapacityKg <= 0 {
		o.CapacityKg = d.CapacityKg
	}
	if o.SpeedKmh <= 0 {
		o.SpeedKmh = d.SpeedKmh
	}
	if o.MaxDurationMin <= 0 {
		o.MaxDurationMin = d.MaxDurationMin
	}
	if o.MaxRouteKm <= 0 {
		o.MaxRouteKm = d.MaxRouteKm
	}
	if o.SolveBudget <= 0 {
		o.SolveBudget = d.SolveBudget
	}
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	return o
}

// Problem is a single city's routing instance. Node 0 is the depot.
type Problem struct {
	City           string
	Nodes          []domain.Location
	Demand         []float64
	Dist           [][]float64
	Vehicles       int
	CapacityKg     float64
	SpeedKmh       float64
	MaxDurationMin float64
	MaxRouteKm     float64
}

// RouteStrategy turns a Problem into visiting sequences, one per used vehicle.
// Sequences hold node indexes and never include the depot.
type RouteStrategy interface {
	Name() string
	Solve(ctx context.Context, p *Problem) ([][]int, error)
}

// TimeMinutes converts a distance into driving minutes at the fleet speed.
func (p *Problem) TimeMinutes(km float64) float64 {
	return km / p.SpeedKmh * 60
}

// withinDuration reports whether a route of km stays inside the max duration.
func (p *Problem) withinDuration(km float64) bool {
	return p.TimeMinutes(km) <= p.MaxDurationMin
}

// withinLimits applies both the duration limit and the per-vehicle distance cap.
func (p *Problem) withinLimits(km float64) bool {
	return km <= p.MaxRouteKm && p.withinDuration(km)
}

// SequenceKm is the length of depot -> seq... -> depot.
func (p *Problem) SequenceKm(seq []int) float64 {
	if len(seq) == 0 {
		return 0
	}
	km := 0.0
	prev := 0
	for _, n := range seq {
		km += p.Dist[prev][n]
		prev = n
	}
	return km + p.Dist[prev][0]
}

// SequenceLoad is the total demand delivered along seq.
func (p *Problem) SequenceLoad(seq []int) float64 {
	load := 0.0
	for _, n := range seq {
		load += p.Demand[n]
	}
	return load
}

// Validate rejects sequences that revisit nodes or break fleet limits.
func (p *Problem) Validate(seqs [][]int, limits func(km float64) bool) error {
	if len(seqs) > p.Vehicles {
		return fmt.Errorf("validate solution: %d routes for %d vehicles", len(seqs), p.Vehicles)
	}
	seen := make(map[int]struct{})
	for i, seq := range seqs {
		for _, n := range seq {
			if n <= 0 || n >= len(p.Nodes) {
				return fmt.Errorf("validate solution: route %d: node %d out of range", i, n)
			}
			if _, ok := seen[n]; ok {
				return fmt.Errorf("validate solution: node %d visited twice", n)
			}
			seen[n] = struct{}{}
		}
		if load := p.SequenceLoad(seq); load > p.CapacityKg {
			return fmt.Errorf("validate solution: route %d load %.1f exceeds capacity %.1f", i, load, p.CapacityKg)
		}
		if km := p.SequenceKm(seq); !limits(km) {
			return fmt.Errorf("validate solution: route %d length %.1f km exceeds limits", i, km)
		}
	}
	return nil
}

// BuildRoutes converts solved sequences into routes. Empty sequences are dropped.
func (p *Problem) BuildRoutes(seqs [][]int, method string) []domain.Route {
	routes := make([]domain.Route, 0, len(seqs))
	for _, seq := range seqs {
		if len(seq) == 0 {
			continue
		}

		stops := make([]domain.RouteStop, 0, len(seq)+1)
		stops = append(stops, domain.RouteStop{Location: p.Nodes[0], IsDepot: true})
		for _, n := range seq {
			stops = append(stops, domain.RouteStop{Location: p.Nodes[n]})
		}

		km := p.SequenceKm(seq)
		load := p.SequenceLoad(seq)

		routes = append(routes, domain.Route{
			VehicleID:        fmt.Sprintf("V%d", len(routes)+1),
			City:             p.City,
			Stops:            stops,
			TotalDistanceKm:  km,
			TotalTimeMinutes: p.TimeMinutes(km),
			TotalLoadKg:      load,
			CarbonEmissionKg: carbon.TransportCO2(km, load),
			Method:           method,
			Status:           domain.StatusPlanned,
		})
	}
	return routes
}
