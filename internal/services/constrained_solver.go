package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	"surplus-redistribution-service/internal/domain"
)

// Moves must shorten the plan by more than this to count as improvements.
const improvementEpsilonKm = 1e-9

// ConstrainedSolver solves the capacitated routing problem with a
// path-cheapest-arc construction followed by local search.
//
// Every stop must be placed on some vehicle without breaking capacity, the
// per-vehicle distance cap or the max duration; otherwise Solve returns
// ErrInfeasible. Local search (2-opt, relocate, swap) runs until no move
// improves the plan or ctx is done, and the best plan so far is returned.
type ConstrainedSolver struct{}

func NewConstrainedSolver() *ConstrainedSolver { return &ConstrainedSolver{} }

func (ConstrainedSolver) Name() string { return string(StrategyConstrained) }

func (s ConstrainedSolver) Solve(ctx context.Context, p *Problem) ([][]int, error) {
	if len(p.Nodes) < 2 {
		return nil, nil
	}

	seqs, unplaced := s.construct(p)
	if len(unplaced) > 0 {
		seqs, unplaced = s.insertRemaining(p, seqs, unplaced)
	}
	if len(unplaced) > 0 {
		return nil, fmt.Errorf("constrained solve: %d of %d stops unplaced: %w",
			len(unplaced), len(p.Nodes)-1, ErrInfeasible)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("constrained solve: construction: %w", err)
	}

	s.improve(ctx, p, seqs)

	out := make([][]int, 0, len(seqs))
	for _, seq := range seqs {
		if len(seq) > 0 {
			out = append(out, seq)
		}
	}
	return out, nil
}

// construct extends each vehicle's path along the cheapest feasible arc.
func (ConstrainedSolver) construct(p *Problem) ([][]int, []int) {
	n := len(p.Nodes)
	visited := make([]bool, n)
	visited[0] = true

	seqs := make([][]int, p.Vehicles)
	for v := range seqs {
		veh := domain.NewVehicle(v+1, p.CapacityKg, p.MaxRouteKm)
		current := 0

		for {
			best := -1
			bestArc := math.Inf(1)
			for j := 1; j < n; j++ {
				if visited[j] || p.Dist[current][j] >= bestArc {
					continue
				}
				extra := p.Dist[current][j] + p.Dist[j][0]
				if !veh.Fits(p.Demand[j], extra) || !p.withinDuration(veh.DistanceKm+extra) {
					continue
				}
				best = j
				bestArc = p.Dist[current][j]
			}
			if best == -1 {
				break
			}
			if err := veh.Load(p.Demand[best], bestArc); err != nil {
				break
			}

			visited[best] = true
			seqs[v] = append(seqs[v], best)
			current = best
		}
	}

	var unplaced []int
	for j := 1; j < n; j++ {
		if !visited[j] {
			unplaced = append(unplaced, j)
		}
	}
	return seqs, unplaced
}

// insertRemaining places leftover stops at their cheapest feasible position,
// heaviest first.
func (ConstrainedSolver) insertRemaining(p *Problem, seqs [][]int, unplaced []int) ([][]int, []int) {
	slices.SortStableFunc(unplaced, func(a, b int) int {
		switch {
		case p.Demand[a] > p.Demand[b]:
			return -1
		case p.Demand[a] < p.Demand[b]:
			return 1
		}
		return 0
	})

	var left []int
	for _, node := range unplaced {
		bestRoute, bestPos := -1, -1
		bestDelta := math.Inf(1)

		for r, seq := range seqs {
			if p.SequenceLoad(seq)+p.Demand[node] > p.CapacityKg {
				continue
			}
			base := p.SequenceKm(seq)
			for pos := 0; pos <= len(seq); pos++ {
				cand := insertAt(seq, pos, node)
				km := p.SequenceKm(cand)
				if !p.withinLimits(km) || p.SequenceLoad(cand) > p.CapacityKg {
					continue
				}
				if delta := km - base; delta < bestDelta {
					bestRoute, bestPos, bestDelta = r, pos, delta
				}
			}
		}

		if bestRoute == -1 {
			left = append(left, node)
			continue
		}
		seqs[bestRoute] = insertAt(seqs[bestRoute], bestPos, node)
	}
	return seqs, left
}

// improve applies first-improvement local search in place.
func (s ConstrainedSolver) improve(ctx context.Context, p *Problem, seqs [][]int) {
	for {
		if ctx.Err() != nil {
			return
		}
		if s.twoOpt(p, seqs) {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if s.relocate(p, seqs) {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if s.swap(p, seqs) {
			continue
		}
		return
	}
}

// twoOpt reverses a segment inside one route.
func (ConstrainedSolver) twoOpt(p *Problem, seqs [][]int) bool {
	for r, seq := range seqs {
		if len(seq) < 2 {
			continue
		}
		base := p.SequenceKm(seq)
		for i := 0; i < len(seq)-1; i++ {
			for j := i + 1; j < len(seq); j++ {
				cand := slices.Clone(seq)
				slices.Reverse(cand[i : j+1])
				if p.SequenceKm(cand) < base-improvementEpsilonKm && p.SequenceLoad(cand) <= p.CapacityKg {
					seqs[r] = cand
					return true
				}
			}
		}
	}
	return false
}

// relocate moves one stop to another position, possibly on another route.
func (ConstrainedSolver) relocate(p *Problem, seqs [][]int) bool {
	for a := range seqs {
		for i := range seqs[a] {
			node := seqs[a][i]
			from := removeAt(seqs[a], i)
			fromKm := p.SequenceKm(from)

			for b := range seqs {
				var target []int
				if b == a {
					target = from
				} else {
					target = seqs[b]
					if p.SequenceLoad(target)+p.Demand[node] > p.CapacityKg {
						continue
					}
				}

				before := p.SequenceKm(seqs[a])
				if b != a {
					before += p.SequenceKm(seqs[b])
				}

				for pos := 0; pos <= len(target); pos++ {
					cand := insertAt(target, pos, node)
					candKm := p.SequenceKm(cand)
					if !p.withinLimits(candKm) || p.SequenceLoad(cand) > p.CapacityKg {
						continue
					}

					after := candKm
					if b != a {
						after += fromKm
					}
					if after < before-improvementEpsilonKm {
						if b == a {
							seqs[a] = cand
						} else {
							seqs[a] = from
							seqs[b] = cand
						}
						return true
					}
				}
			}
		}
	}
	return false
}

// swap exchanges two stops on different routes.
func (ConstrainedSolver) swap(p *Problem, seqs [][]int) bool {
	for a := 0; a < len(seqs); a++ {
		for b := a + 1; b < len(seqs); b++ {
			before := p.SequenceKm(seqs[a]) + p.SequenceKm(seqs[b])
			loadA := p.SequenceLoad(seqs[a])
			loadB := p.SequenceLoad(seqs[b])

			for i, x := range seqs[a] {
				for j, y := range seqs[b] {
					if loadA-p.Demand[x]+p.Demand[y] > p.CapacityKg ||
						loadB-p.Demand[y]+p.Demand[x] > p.CapacityKg {
						continue
					}

					candA := slices.Clone(seqs[a])
					candB := slices.Clone(seqs[b])
					candA[i], candB[j] = y, x

					// Recompute exactly; incremental float sums can drift past the cap.
					if p.SequenceLoad(candA) > p.CapacityKg || p.SequenceLoad(candB) > p.CapacityKg {
						continue
					}
					kmA, kmB := p.SequenceKm(candA), p.SequenceKm(candB)
					if !p.withinLimits(kmA) || !p.withinLimits(kmB) {
						continue
					}
					if kmA+kmB < before-improvementEpsilonKm {
						seqs[a], seqs[b] = candA, candB
						return true
					}
				}
			}
		}
	}
	return false
}

func insertAt(seq []int, pos, node int) []int {
	out := make([]int, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, node)
	return append(out, seq[pos:]...)
}

func removeAt(seq []int, i int) []int {
	out := make([]int, 0, len(seq)-1)
	out = append(out, seq[:i]...)
	return append(out, seq[i+1:]...)
}
