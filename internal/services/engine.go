package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/obs"
	"surplus-redistribution-service/internal/ports"

	"github.com/google/uuid"
)

const (
	DefaultHorizonDays = 3
	DefaultLockTTL     = 2 * time.Minute

	// Cascade and routing runs share one lock: both write to the same ledger.
	RunLockName = "foodflow:run"
)

// Settings tune the engine. Zero values take the package defaults.
type Settings struct {
	HorizonDays         int
	MaxRedistributionKm float64
	Route               RouteOptions
	LockTTL             time.Duration
	DemoSeed            uint64
}

func (s Settings) withDefaults() Settings {
	if s.HorizonDays <= 0 {
		s.HorizonDays = DefaultHorizonDays
	}
	if s.MaxRedistributionKm <= 0 {
		s.MaxRedistributionKm = DefaultMaxRedistributionKm
	}
	if s.LockTTL <= 0 {
		s.LockTTL = DefaultLockTTL
	}
	s.Route = s.Route.withDefaults()
	return s
}

// EngineDeps are the collaborators the engine reads from and writes to.
type EngineDeps struct {
	Locations  ports.LocationRepository
	Inventory  ports.InventoryReader
	Demand     ports.DemandReader
	Actions    ports.ActionLedger
	Routes     ports.RouteLedger
	Lock       ports.RunLock
	Distance   ports.DistanceProvider
	Accountant *carbon.Accountant
}

// Engine runs the surplus cascade and the routing pass against a dataset.
type Engine struct {
	deps     EngineDeps
	settings Settings
	planner  *RoutePlanner
	now      func() time.Time
}

func NewEngine(deps EngineDeps, settings Settings) *Engine {
	if deps.Accountant == nil {
		deps.Accountant = carbon.Default()
	}
	settings = settings.withDefaults()

	return &Engine{
		deps:     deps,
		settings: settings,
		planner:  NewRoutePlanner(deps.Distance, settings.DemoSeed),
		now:      time.Now,
	}
}

func (e *Engine) Settings() Settings { return e.settings }

type RunCascadeRequest struct {
	HorizonDays   int
	MaxDistanceKm float64
	// Persist writes actions and their impact entries to the ledger.
	Persist bool
}

// CascadeRun is the outcome of one cascade run.
type CascadeRun struct {
	RunID        uuid.UUID
	SurplusItems int
	Actions      []domain.CascadeAction
	Summary      *domain.RunSummary
	Flow         FlowGraph
	Persisted    bool
}

// RunCascade identifies surplus and allocates it across the tiers.
//
// Missing data yields an empty run. Unexpected failures come back as a
// *StageError; when allocation fails part-way the actions produced so far
// are returned with it and nothing is persisted.
func (e *Engine) RunCascade(ctx context.Context, req RunCascadeRequest) (_ *CascadeRun, err error) {
	defer obs.Time(ctx, "engine.RunCascade")(&err)
	defer e.observe("cascade", time.Now(), &err)

	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = e.settings.HorizonDays
	}
	maxKm := req.MaxDistanceKm
	if maxKm <= 0 {
		maxKm = e.settings.MaxRedistributionKm
	}

	release, err := e.deps.Lock.Acquire(ctx, RunLockName, e.settings.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("run cascade: acquire lock: %w", err)
	}
	defer e.release(ctx, release)

	run := &CascadeRun{
		RunID:   uuid.New(),
		Actions: []domain.CascadeAction{},
		Summary: domain.NewRunSummary(),
	}

	locs, err := e.deps.Locations.ListLocations(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("list locations: %w", err)}
	}
	registry := domain.NewRegistry(locs)
	if registry.Len() == 0 {
		return run, nil
	}

	records, err := e.deps.Inventory.LatestInventory(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("latest inventory: %w", err)}
	}
	demand, err := e.deps.Demand.PredictedDemand(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("predicted demand: %w", err)}
	}

	items := IdentifySurplus(records, demand, registry, horizon)
	run.SurplusItems = len(items)
	if len(items) == 0 {
		return run, nil
	}

	alloc := NewCascadeAllocator(registry, e.deps.Distance, e.deps.Accountant, maxKm)
	alloc.now = e.now

	res, allocErr := alloc.Allocate(items)
	for i := range res.Actions {
		res.Actions[i].RunID = run.RunID
	}
	run.Actions = res.Actions
	run.Summary = res.Summary
	run.Flow = BuildFlowGraph(res.Actions)

	if allocErr != nil {
		return run, allocErr
	}

	e.recordCascade(run.Summary)

	if !req.Persist || len(run.Actions) == 0 {
		return run, nil
	}
	for _, a := range run.Actions {
		if err := a.Validate(); err != nil {
			return run, &StageError{
				Stage: StagePersist, ItemsProcessed: res.ItemsProcessed,
				ActionsProduced: len(run.Actions), Err: err,
			}
		}
	}
	if err := e.deps.Actions.AppendActions(ctx, run.RunID, run.Actions); err != nil {
		return run, &StageError{
			Stage: StagePersist, ItemsProcessed: res.ItemsProcessed,
			ActionsProduced: len(run.Actions), Err: fmt.Errorf("append actions: %w", err),
		}
	}
	run.Persisted = true

	slog.InfoContext(ctx, "cascade run stored",
		"run_id", run.RunID, "actions", len(run.Actions), "kg", run.Summary.TotalKg)
	return run, nil
}

type PlanRoutesInput struct {
	Vehicles int
	City     string
	Strategy StrategyName
	// Persist writes non-demo routes to the ledger.
	Persist bool
}

// RoutingRun is the outcome of one routing pass.
type RoutingRun struct {
	RunID     uuid.UUID
	Plan      *RoutePlan
	Summary   RouteSummary
	Map       []MapRoute
	Persisted bool
}

// PlanRoutes plans vehicle routes for every pending action.
func (e *Engine) PlanRoutes(ctx context.Context, in PlanRoutesInput) (_ *RoutingRun, err error) {
	defer obs.Time(ctx, "engine.PlanRoutes")(&err)
	defer e.observe("routing", time.Now(), &err)

	opts := e.settings.Route
	if in.Vehicles != 0 {
		if in.Vehicles < 1 || in.Vehicles > MaxVehicles {
			return nil, fmt.Errorf("plan routes: vehicles must be between 1 and %d: %w", MaxVehicles, ErrInvalidInput)
		}
		opts.Vehicles = in.Vehicles
	}
	if in.Strategy != "" {
		if !in.Strategy.Valid() {
			return nil, fmt.Errorf("plan routes: unknown strategy %q: %w", in.Strategy, ErrInvalidInput)
		}
		opts.Strategy = in.Strategy
	}

	release, err := e.deps.Lock.Acquire(ctx, RunLockName, e.settings.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("plan routes: acquire lock: %w", err)
	}
	defer e.release(ctx, release)

	locs, err := e.deps.Locations.ListLocations(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("list locations: %w", err)}
	}
	pending, err := e.deps.Actions.PendingActions(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: fmt.Errorf("pending actions: %w", err)}
	}

	plan, err := e.planner.PlanRoutes(ctx, PlanRoutesRequest{City: in.City, Options: opts}, domain.NewRegistry(locs), pending)
	if err != nil {
		return nil, &StageError{Stage: StageRoute, ActionsProduced: len(pending), Err: err}
	}

	run := &RoutingRun{
		RunID:   uuid.New(),
		Plan:    plan,
		Summary: SummarizeRoutes(plan.Routes, e.deps.Distance),
		Map:     BuildMapData(plan.Routes),
	}
	now := e.now()
	for i := range plan.Routes {
		plan.Routes[i].RunID = run.RunID
		plan.Routes[i].CreatedAt = now
	}

	if !in.Persist || plan.Demo || len(plan.Routes) == 0 {
		return run, nil
	}
	if err := e.deps.Routes.AppendRoutes(ctx, run.RunID, plan.Routes); err != nil {
		return run, &StageError{Stage: StagePersist, ActionsProduced: len(pending), Err: fmt.Errorf("append routes: %w", err)}
	}
	run.Persisted = true

	slog.InfoContext(ctx, "routing run stored", "run_id", run.RunID, "routes", len(plan.Routes))
	return run, nil
}

// Locations returns the current registry contents.
func (e *Engine) Locations(ctx context.Context) ([]domain.Location, error) {
	locs, err := e.deps.Locations.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

// UpdateActionStatus records execution progress for a planned action.
func (e *Engine) UpdateActionStatus(ctx context.Context, actionID int64, status domain.Status) error {
	if !domain.StatusPlanned.CanTransition(status) {
		return fmt.Errorf("update action status: %q is not a terminal status: %w", status, ErrInvalidInput)
	}
	if err := e.deps.Actions.UpdateActionStatus(ctx, actionID, status); err != nil {
		return fmt.Errorf("update action status: %w", err)
	}
	return nil
}

func (e *Engine) release(ctx context.Context, release func(context.Context) error) {
	// The run may have been cancelled; the lock still has to go.
	if err := release(context.WithoutCancel(ctx)); err != nil {
		slog.WarnContext(ctx, "release run lock failed", "err", err)
	}
}

func (e *Engine) observe(kind string, start time.Time, errp *error) {
	result := "ok"
	var stageErr *StageError
	switch {
	case errp == nil || *errp == nil:
	case errors.Is(*errp, ports.ErrRunInProgress):
		result = "locked"
	case errors.As(*errp, &stageErr):
		result = "failed_" + stageErr.Stage
	default:
		result = "error"
	}
	obs.RunsTotal.WithLabelValues(kind, result).Inc()
	obs.RunDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (e *Engine) recordCascade(s *domain.RunSummary) {
	for tier, ts := range s.Tiers {
		if ts.Actions == 0 {
			continue
		}
		obs.CascadeActionsTotal.WithLabelValues(tier.String()).Add(float64(ts.Actions))
		obs.CascadeKgTotal.WithLabelValues(tier.String()).Add(ts.Kg)
	}
	if s.UnresolvedKg > 0 {
		obs.UnresolvedKgTotal.Add(s.UnresolvedKg)
	}
}
