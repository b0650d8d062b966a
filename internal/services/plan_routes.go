package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/obs"
	"surplus-redistribution-service/internal/ports"

	"golang.org/x/sync/errgroup"
)

// At most this many city problems are solved at once.
const maxParallelCities = 4

// UnservedStop is a location whose deliveries no route could carry.
type UnservedStop struct {
	City       string
	LocationID int
	Name       string
	DemandKg   float64
	Reason     string
}

// RoutePlan is the output of a routing pass.
type RoutePlan struct {
	Routes   []domain.Route
	Unserved []UnservedStop
	Demo     bool
	Warnings []string
}

type PlanRoutesRequest struct {
	// City restricts planning to actions whose source is in this city.
	City    string
	Options RouteOptions
}

// RoutePlanner turns pending cascade actions into vehicle routes.
type RoutePlanner struct {
	distance    ports.DistanceProvider
	constrained RouteStrategy
	greedy      RouteStrategy
	seed        uint64
}

func NewRoutePlanner(distance ports.DistanceProvider, seed uint64) *RoutePlanner {
	return &RoutePlanner{
		distance:    distance,
		constrained: NewConstrainedSolver(),
		greedy:      NewGreedySolver(),
		seed:        seed,
	}
}

type cityResult struct {
	routes   []domain.Route
	unserved []UnservedStop
	warnings []string
}

// PlanRoutes groups actions by the city of their source location and solves
// each city independently. Without any pending action it returns demo routes.
//
// An empty registry yields no routes. Cities the chosen strategy cannot
// solve contribute fewer routes, never invalid ones.
func (rp *RoutePlanner) PlanRoutes(
	ctx context.Context,
	req PlanRoutesRequest,
	registry *domain.Registry,
	actions []domain.CascadeAction,
) (_ *RoutePlan, err error) {
	defer obs.Time(ctx, "routes.PlanRoutes")(&err)

	opts := req.Options.withDefaults()
	if registry == nil || registry.Len() == 0 {
		return &RoutePlan{Routes: []domain.Route{}}, nil
	}

	groups := make(map[string][]domain.CascadeAction)
	for _, a := range actions {
		if a.Status != domain.StatusPlanned {
			continue
		}
		src, ok := registry.Get(a.SourceID)
		if !ok {
			slog.WarnContext(ctx, "action source not in registry", "action_id", a.ID, "source_id", a.SourceID)
			continue
		}
		if _, ok := registry.Get(a.DestinationID); !ok {
			slog.WarnContext(ctx, "action destination not in registry", "action_id", a.ID, "destination_id", a.DestinationID)
			continue
		}
		if req.City != "" && src.City != req.City {
			continue
		}
		groups[src.City] = append(groups[src.City], a)
	}

	if len(groups) == 0 {
		routes := rp.DemoRoutes(registry, req.City, opts)
		return &RoutePlan{Routes: routes, Demo: true}, nil
	}

	cities := make([]string, 0, len(groups))
	for c := range groups {
		cities = append(cities, c)
	}
	slices.Sort(cities)

	results := make([]cityResult, len(cities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCities)

	for i, city := range cities {
		g.Go(func() error {
			res, err := rp.solveCity(gctx, city, groups[city], registry, opts)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return fmt.Errorf("plan routes: city %q: %w", city, ctxErr)
				}
				// One bad city must not discard the others.
				slog.WarnContext(gctx, "city routing failed", "city", city, "err", err)
				res = failedCity(city, groups[city], registry, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan := &RoutePlan{Routes: []domain.Route{}}
	for _, res := range results {
		plan.Routes = append(plan.Routes, res.routes...)
		plan.Unserved = append(plan.Unserved, res.unserved...)
		plan.Warnings = append(plan.Warnings, res.warnings...)
	}
	// Vehicle ids are unique across the whole plan.
	for i := range plan.Routes {
		plan.Routes[i].VehicleID = fmt.Sprintf("V%d", i+1)
	}
	return plan, nil
}

// failedCity reports every delivery of a city that could not be routed.
func failedCity(city string, actions []domain.CascadeAction, registry *domain.Registry, err error) cityResult {
	res := cityResult{warnings: []string{fmt.Sprintf("city %q: %v", city, err)}}

	demand := make(map[int]float64)
	order := make([]int, 0, len(actions))
	for _, a := range actions {
		if _, ok := demand[a.DestinationID]; !ok {
			order = append(order, a.DestinationID)
		}
		demand[a.DestinationID] += a.QuantityKg
	}
	for _, id := range order {
		loc, _ := registry.Get(id)
		res.unserved = append(res.unserved, UnservedStop{
			City: city, LocationID: id, Name: loc.Name, DemandKg: demand[id],
			Reason: "routing failed",
		})
	}
	return res
}

// BuildProblem collects the depot and every location touched by actions.
// Demand at a location is the total quantity destined there. Locations whose
// own demand exceeds vehicle capacity are returned as unserved.
func BuildProblem(
	city string,
	actions []domain.CascadeAction,
	registry *domain.Registry,
	distance ports.DistanceProvider,
	opts RouteOptions,
) (*Problem, []UnservedStop, error) {
	opts = opts.withDefaults()

	demand := make(map[int]float64)
	touched := make([]int, 0, 2*len(actions))
	seen := make(map[int]struct{})
	for _, a := range actions {
		for _, id := range []int{a.SourceID, a.DestinationID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				touched = append(touched, id)
			}
		}
		demand[a.DestinationID] += a.QuantityKg
	}

	depot, ok := pickDepot(city, touched, demand, registry)
	if !ok {
		return nil, nil, ErrNoLocations
	}

	p := &Problem{
		City:           city,
		Nodes:          []domain.Location{depot},
		Demand:         []float64{0},
		Vehicles:       opts.Vehicles,
		CapacityKg:     opts.CapacityKg,
		SpeedKmh:       opts.SpeedKmh,
		MaxDurationMin: opts.MaxDurationMin,
		MaxRouteKm:     opts.MaxRouteKm,
	}

	var unserved []UnservedStop
	for _, id := range touched {
		if id == depot.ID {
			// Vehicles start here, so nothing can be delivered to it.
			if d := demand[id]; d > 0 {
				unserved = append(unserved, UnservedStop{
					City: city, LocationID: id, Name: depot.Name, DemandKg: d,
					Reason: "depot has pending deliveries",
				})
			}
			continue
		}
		loc, _ := registry.Get(id)
		if d := demand[id]; d > opts.CapacityKg {
			unserved = append(unserved, UnservedStop{
				City: city, LocationID: id, Name: loc.Name, DemandKg: d,
				Reason: "demand exceeds vehicle capacity",
			})
			continue
		}
		p.Nodes = append(p.Nodes, loc)
		p.Demand = append(p.Demand, demand[id])
	}

	points := make([]domain.Coordinates, len(p.Nodes))
	for i, l := range p.Nodes {
		if err := l.Coords.Validate(); err != nil {
			return nil, nil, fmt.Errorf("build problem: location %d: %w", l.ID, err)
		}
		points[i] = l.Coords
	}
	p.Dist = distanceMatrix(distance, points)

	return p, unserved, nil
}

// pickDepot prefers an in-city warehouse, then any warehouse, then the first
// touched location nothing is delivered to, then the first touched location.
func pickDepot(city string, touched []int, demand map[int]float64, registry *domain.Registry) (domain.Location, bool) {
	warehouses := registry.OfKind(domain.KindWarehouse)
	if in := domain.InCity(warehouses, city); len(in) > 0 {
		return in[0], true
	}
	if len(warehouses) > 0 {
		return warehouses[0], true
	}
	for _, id := range touched {
		if loc, ok := registry.Get(id); ok && demand[id] == 0 {
			return loc, true
		}
	}
	for _, id := range touched {
		if loc, ok := registry.Get(id); ok {
			return loc, true
		}
	}
	return domain.Location{}, false
}

func distanceMatrix(provider ports.DistanceProvider, points []domain.Coordinates) [][]float64 {
	// Prefer a single batched computation when supported.
	if mp, ok := provider.(ports.DistanceMatrixProvider); ok {
		return mp.Matrix(points)
	}

	m := make([][]float64, len(points))
	for i := range points {
		m[i] = make([]float64, len(points))
		for j := range points {
			if i != j {
				m[i][j] = provider.DistanceKm(points[i], points[j])
			}
		}
	}
	return m
}

func (rp *RoutePlanner) solveCity(
	ctx context.Context,
	city string,
	actions []domain.CascadeAction,
	registry *domain.Registry,
	opts RouteOptions,
) (cityResult, error) {
	p, unserved, err := BuildProblem(city, actions, registry, rp.distance, opts)
	if err != nil {
		return cityResult{}, err
	}
	res := cityResult{unserved: unserved}

	if len(p.Nodes) < 2 {
		return res, nil
	}

	strategy, method := rp.greedy, domain.MethodGreedy
	useConstrained := opts.Strategy == StrategyConstrained ||
		(opts.Strategy == StrategyAuto && len(p.Nodes) > 2)
	if useConstrained {
		strategy, method = rp.constrained, domain.MethodConstrained
	}

	seqs, err := rp.runStrategy(ctx, strategy, p, opts.SolveBudget)
	if err != nil && strategy == rp.constrained && opts.Strategy == StrategyAuto &&
		(errors.Is(err, ErrInfeasible) || errors.Is(err, context.DeadlineExceeded)) {
		reason := "infeasible"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		obs.SolverFallbacks.WithLabelValues(reason).Inc()
		slog.InfoContext(ctx, "constrained solve failed, using greedy routing",
			"city", city, "nodes", len(p.Nodes), "reason", reason, "err", err)

		strategy, method = rp.greedy, domain.MethodGreedy
		seqs, err = rp.runStrategy(ctx, strategy, p, opts.SolveBudget)
	}
	if err != nil {
		if errors.Is(err, ErrInfeasible) {
			res.warnings = append(res.warnings, fmt.Sprintf("city %q: %v", city, err))
			res.unserved = append(res.unserved, unservedNodes(p, nil, "no feasible solution")...)
			return res, nil
		}
		return cityResult{}, err
	}

	limits := p.withinDuration
	if strategy == rp.constrained {
		limits = p.withinLimits
	}
	if err := p.Validate(seqs, limits); err != nil {
		return cityResult{}, fmt.Errorf("%s solver: %w", strategy.Name(), err)
	}

	res.routes = p.BuildRoutes(seqs, method)
	res.unserved = append(res.unserved, unservedNodes(p, seqs, "no vehicle capacity or time left")...)
	return res, nil
}

func (rp *RoutePlanner) runStrategy(
	ctx context.Context,
	strategy RouteStrategy,
	p *Problem,
	budget time.Duration,
) ([][]int, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	defer func() {
		obs.SolverDuration.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
	}()

	return strategy.Solve(ctx, p)
}

// unservedNodes lists the non-depot nodes missing from seqs.
func unservedNodes(p *Problem, seqs [][]int, reason string) []UnservedStop {
	visited := make(map[int]struct{})
	for _, seq := range seqs {
		for _, n := range seq {
			visited[n] = struct{}{}
		}
	}

	var out []UnservedStop
	for n := 1; n < len(p.Nodes); n++ {
		if _, ok := visited[n]; ok {
			continue
		}
		out = append(out, UnservedStop{
			City:       p.City,
			LocationID: p.Nodes[n].ID,
			Name:       p.Nodes[n].Name,
			DemandKg:   p.Demand[n],
			Reason:     reason,
		})
	}
	return out
}
