package services

import (
	"context"
	"math"
)

// GreedySolver plans routes with a greedy nearest-neighbor algorithm.
//
// Vehicles are filled one after another. At each step the nearest unvisited
// stop is chosen among those that keep the load within capacity and the
// route, including its return leg, within the max duration.
// It does not attempt global route optimization.
// The design prioritizes determinism and simplicity over optimality.
type GreedySolver struct{}

func NewGreedySolver() *GreedySolver { return &GreedySolver{} }

func (GreedySolver) Name() string { return string(StrategyGreedy) }

func (GreedySolver) Solve(ctx context.Context, p *Problem) ([][]int, error) {
	n := len(p.Nodes)
	if n < 2 {
		return nil, nil
	}

	visited := make([]bool, n)
	visited[0] = true

	seqs := make([][]int, 0, p.Vehicles)
	for v := 0; v < p.Vehicles; v++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seq := []int{}
		current := 0
		routeKm := 0.0
		load := 0.0

		for {
			best := -1
			bestKm := math.Inf(1)

			// Select next stop by minimum leg distance (greedy step).
			for j := 1; j < n; j++ {
				if visited[j] {
					continue
				}
				leg := p.Dist[current][j]
				// Tie-breaker ensures deterministic ordering when distances are equal.
				if leg > bestKm || (leg == bestKm && best != -1 && j > best) {
					continue
				}
				if load+p.Demand[j] > p.CapacityKg {
					continue
				}
				next := routeKm + leg
				if !p.withinDuration(next + p.Dist[j][0]) {
					continue
				}
				best = j
				bestKm = leg
			}

			if best == -1 {
				break
			}

			visited[best] = true
			seq = append(seq, best)
			routeKm += bestKm
			load += p.Demand[best]
			current = best
		}

		if len(seq) > 0 {
			seqs = append(seqs, seq)
		}
	}

	return seqs, nil
}
