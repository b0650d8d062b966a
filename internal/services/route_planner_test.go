package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"surplus-redistribution-service/internal/domain"
)

// hubProblem is a depot and three stops with fixed distances:
// HUB-A 1.0, HUB-B 2.0, HUB-C 1.5, A-B 0.8, A-C 0.7, B-C 0.9 km.
func hubProblem() *Problem {
	names := []string{"HUB", "A", "B", "C"}
	nodes := make([]domain.Location, len(names))
	for i, n := range names {
		nodes[i] = domain.Location{ID: i + 100, Name: n, City: "Phoenix"}
	}

	d := [][]float64{
		{0, 1.0, 2.0, 1.5},
		{1.0, 0, 0.8, 0.7},
		{2.0, 0.8, 0, 0.9},
		{1.5, 0.7, 0.9, 0},
	}

	return &Problem{
		City:           "Phoenix",
		Nodes:          nodes,
		Demand:         []float64{0, 10, 10, 10},
		Dist:           d,
		Vehicles:       1,
		CapacityKg:     DefaultVehicleCapacityKg,
		SpeedKmh:       DefaultVehicleSpeedKmh,
		MaxDurationMin: DefaultMaxRouteMinutes,
		MaxRouteKm:     DefaultMaxRouteKm,
	}
}

func TestGreedySolverNearestNeighborOrder(t *testing.T) {
	p := hubProblem()

	seqs, err := NewGreedySolver().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seqs) != 1 {
		t.Fatalf("expected 1 route, got %d", len(seqs))
	}
	want := []string{"A", "C", "B"}
	if len(seqs[0]) != len(want) {
		t.Fatalf("expected %d stops, got %d", len(want), len(seqs[0]))
	}
	for i, n := range seqs[0] {
		if got := p.Nodes[n].Name; got != want[i] {
			t.Fatalf("stop %d = %q, want %q", i, got, want[i])
		}
	}

	routes := p.BuildRoutes(seqs, domain.MethodGreedy)
	if len(routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(routes))
	}
	r := routes[0]
	if math.Abs(r.TotalDistanceKm-4.6) > 1e-9 {
		t.Fatalf("distance = %v, want 4.6", r.TotalDistanceKm)
	}
	if math.Abs(r.TotalTimeMinutes-6.9) > 1e-9 {
		t.Fatalf("time = %v, want 6.9", r.TotalTimeMinutes)
	}
	if r.TotalLoadKg != 30 {
		t.Fatalf("load = %v, want 30", r.TotalLoadKg)
	}
	if !r.Stops[0].IsDepot || r.Stops[0].Location.Name != "HUB" {
		t.Fatalf("first stop = %+v, want depot HUB", r.Stops[0])
	}
	if r.VehicleID != "V1" {
		t.Fatalf("vehicle = %q, want V1", r.VehicleID)
	}
}

func TestGreedySolverTieBreaksOnIndex(t *testing.T) {
	p := hubProblem()
	p.Dist[0][1], p.Dist[1][0] = 1.5, 1.5 // HUB-A now ties HUB-C

	seqs, err := NewGreedySolver().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Nodes[seqs[0][0]].Name; got != "A" {
		t.Fatalf("first stop = %q, want A", got)
	}
}

func TestGreedySolverRespectsDuration(t *testing.T) {
	p := hubProblem()
	// 3 km at 40 km/h is 4.5 minutes: only HUB-A-HUB (2 km) and
	// HUB-C-HUB (3 km) fit on their own.
	p.MaxDurationMin = 4.5
	p.Vehicles = 3

	seqs, err := NewGreedySolver().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(seqs, p.withinDuration); err != nil {
		t.Fatalf("invalid solution: %v", err)
	}
	for _, seq := range seqs {
		if min := p.TimeMinutes(p.SequenceKm(seq)); min > p.MaxDurationMin {
			t.Fatalf("route time %v exceeds %v", min, p.MaxDurationMin)
		}
	}
}

func TestConstrainedSolverMatchesSmallOptimum(t *testing.T) {
	p := hubProblem()

	seqs, err := NewConstrainedSolver().Solve(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Validate(seqs, p.withinLimits); err != nil {
		t.Fatalf("invalid solution: %v", err)
	}
	// HUB-A-B-C-HUB and its reverse are the shortest tours: 1.0+0.8+0.9+1.5.
	if km := p.SequenceKm(seqs[0]); math.Abs(km-4.2) > 1e-9 {
		t.Fatalf("distance = %v, want 4.2", km)
	}
}

func TestConstrainedSolverInfeasible(t *testing.T) {
	p := hubProblem()
	p.CapacityKg = 15 // one stop per vehicle, one vehicle, three stops

	_, err := NewConstrainedSolver().Solve(context.Background(), p)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
}
