package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts optimization runs by kind (cascade, routing) and result.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodflow_runs_total",
		Help: "Optimization runs by kind and result",
	}, []string{"kind", "result"})

	// RunDuration tracks end-to-end run latency.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodflow_run_duration_seconds",
		Help:    "Optimization run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"kind"})

	// CascadeActionsTotal counts produced cascade actions by tier.
	CascadeActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodflow_cascade_actions_total",
		Help: "Cascade actions produced by tier",
	}, []string{"tier"})

	// CascadeKgTotal sums redistributed kilograms by tier.
	CascadeKgTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodflow_cascade_kg_total",
		Help: "Kilograms of surplus allocated by tier",
	}, []string{"tier"})

	// UnresolvedKgTotal sums surplus that no tier could absorb.
	UnresolvedKgTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodflow_cascade_unresolved_kg_total",
		Help: "Kilograms of surplus left without a destination",
	})

	// SolverDuration tracks per-city route solve latency by strategy.
	SolverDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodflow_route_solve_duration_seconds",
		Help:    "Per-city route solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 17), // 0.1ms to ~6.5s
	}, []string{"strategy"})

	// SolverFallbacks counts constrained solves replaced by the greedy strategy.
	SolverFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodflow_route_solver_fallbacks_total",
		Help: "Constrained solves that fell back to greedy routing, by reason",
	}, []string{"reason"})
)
