package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/obs"
	"surplus-redistribution-service/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	runKindCascade = "cascade"
	runKindRouting = "routing"
)

// claimRun registers runID inside tx. It reports false when the run was
// already stored, in which case the caller must write nothing.
func (s *SQLStore) claimRun(ctx context.Context, tx *sql.Tx, runID uuid.UUID, kind string) (bool, error) {
	query := `
	INSERT INTO ledger_runs (run_id, kind, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT (run_id) DO NOTHING;
	`
	res, err := tx.ExecContext(ctx, s.Dialect.Rebind(query), runID.String(), kind, formatTime(s.now()))
	if err != nil {
		return false, fmt.Errorf("claim run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim run %s: rows affected: %w", runID, err)
	}
	return n == 1, nil
}

// Persist the actions of one run with one carbon impact row each.
// Either everything is written or nothing is.
func (s *SQLStore) AppendActions(ctx context.Context, runID uuid.UUID, actions []domain.CascadeAction) (err error) {
	defer obs.Time(ctx, "store.AppendActions")(&err)

	if err := s.check(); err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append actions: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fresh, err := s.claimRun(ctx, tx, runID, runKindCascade)
	if err != nil {
		return fmt.Errorf("append actions: %w", err)
	}
	if !fresh {
		return nil
	}

	insertAction, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO waste_cascade_actions (
		run_id, created_at, source_id, destination_id, product_id,
		product_name, source_name, destination_name, quantity_kg, tier,
		carbon_saved_kg, cost_saved, distance_km, status
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`))
	if err != nil {
		return fmt.Errorf("append actions: prepare action insert: %w", err)
	}
	defer insertAction.Close()

	insertImpact, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO carbon_impact (
		action_id, impact_date, action_type, description,
		food_saved_kg, carbon_saved_kg, cost_saved, store_id
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("append actions: prepare impact insert: %w", err)
	}
	defer insertImpact.Close()

	for i, a := range actions {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = s.now()
		}
		if a.Status == "" {
			a.Status = domain.StatusPlanned
		}

		var id int64
		err := insertAction.QueryRowContext(ctx,
			runID.String(), formatTime(a.CreatedAt), a.SourceID, a.DestinationID, a.ProductID,
			a.ProductName, a.SourceName, a.DestinationName, a.QuantityKg, int(a.Tier),
			a.CarbonSavedKg, a.CostSaved.StringFixed(2), a.DistanceKm, string(a.Status),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("append actions: insert action #%d: %w", i+1, err)
		}

		imp := domain.ImpactFor(a)
		_, err = insertImpact.ExecContext(ctx,
			id, formatTime(imp.Date), imp.ActionType, imp.Description,
			imp.FoodSavedKg, imp.CarbonSavedKg, imp.CostSaved.StringFixed(2), imp.StoreID,
		)
		if err != nil {
			return fmt.Errorf("append actions: insert impact for action %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append actions: commit tx: %w", err)
	}

	return nil
}

// Return planned actions in insertion order.
func (s *SQLStore) PendingActions(ctx context.Context) (_ []domain.CascadeAction, err error) {
	defer obs.Time(ctx, "store.PendingActions")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	query := `
	SELECT
		id, run_id, created_at, source_id, destination_id, product_id,
		product_name, source_name, destination_name, quantity_kg, tier,
		carbon_saved_kg, cost_saved, distance_km, status
	FROM waste_cascade_actions
	WHERE status = ?
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), string(domain.StatusPlanned))
	if err != nil {
		return nil, fmt.Errorf("pending actions: query waste_cascade_actions table: %w", err)
	}
	defer rows.Close()

	actions := make([]domain.CascadeAction, 0, 64)
	for rows.Next() {
		var (
			a       domain.CascadeAction
			runID   string
			created sqlTime
			tier    int
			cost    decimal.Decimal
			status  string
		)
		err := rows.Scan(
			&a.ID, &runID, &created, &a.SourceID, &a.DestinationID, &a.ProductID,
			&a.ProductName, &a.SourceName, &a.DestinationName, &a.QuantityKg, &tier,
			&a.CarbonSavedKg, &cost, &a.DistanceKm, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("pending actions: scan row: %w", err)
		}

		a.RunID, err = uuid.Parse(runID)
		if err != nil {
			return nil, fmt.Errorf("pending actions: action %d: parse run id: %w", a.ID, err)
		}
		a.CreatedAt = created.Time
		a.Tier = domain.Tier(tier)
		a.CostSaved = cost
		a.Status = domain.Status(status)
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending actions: row iteration: %w", err)
	}

	return actions, nil
}

// Move a planned action to a terminal status.
func (s *SQLStore) UpdateActionStatus(ctx context.Context, actionID int64, status domain.Status) (err error) {
	defer obs.Time(ctx, "store.UpdateActionStatus")(&err)

	if err := s.check(); err != nil {
		return err
	}
	if !domain.StatusPlanned.CanTransition(status) {
		return fmt.Errorf("update action status: to %q: %w", status, ports.ErrInvalidTransition)
	}

	query := `
	UPDATE waste_cascade_actions
	SET status = ?
	WHERE id = ? AND status = ?;
	`
	res, err := s.DB.ExecContext(ctx, s.Dialect.Rebind(query), string(status), actionID, string(domain.StatusPlanned))
	if err != nil {
		return fmt.Errorf("update action status: action %d: %w", actionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update action status: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.DB.QueryRowContext(ctx,
		s.Dialect.Rebind(`SELECT status FROM waste_cascade_actions WHERE id = ?;`), actionID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update action status: action %d: %w", actionID, ports.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update action status: action %d: lookup: %w", actionID, err)
	}
	return fmt.Errorf("update action status: action %d is %s: %w", actionID, current, ports.ErrInvalidTransition)
}

// Stop as serialized in the routes table.
type storedStop struct {
	LocationID int     `json:"location_id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	IsDepot    bool    `json:"is_depot"`
}

// Persist the routes of one run. Either everything is written or nothing is.
func (s *SQLStore) AppendRoutes(ctx context.Context, runID uuid.UUID, routes []domain.Route) (err error) {
	defer obs.Time(ctx, "store.AppendRoutes")(&err)

	if err := s.check(); err != nil {
		return err
	}
	if len(routes) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fresh, err := s.claimRun(ctx, tx, runID, runKindRouting)
	if err != nil {
		return fmt.Errorf("append routes: %w", err)
	}
	if !fresh {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO routes (
		run_id, created_at, vehicle_id, city, stops_json,
		total_distance_km, total_time_minutes, total_load_kg,
		carbon_emission_kg, method, status
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("append routes: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range routes {
		stops := make([]storedStop, 0, len(r.Stops))
		for _, st := range r.Stops {
			stops = append(stops, storedStop{
				LocationID: st.Location.ID,
				Name:       st.Location.Name,
				Lat:        st.Location.Coords.Lat,
				Lon:        st.Location.Coords.Lon,
				IsDepot:    st.IsDepot,
			})
		}
		stopsJSON, err := json.Marshal(stops)
		if err != nil {
			return fmt.Errorf("append routes: encode stops of route #%d: %w", i+1, err)
		}

		created := r.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		status := r.Status
		if status == "" {
			status = domain.StatusPlanned
		}

		_, err = stmt.ExecContext(ctx,
			runID.String(), formatTime(created), r.VehicleID, r.City, string(stopsJSON),
			r.TotalDistanceKm, r.TotalTimeMinutes, r.TotalLoadKg,
			r.CarbonEmissionKg, r.Method, string(status),
		)
		if err != nil {
			return fmt.Errorf("append routes: insert route #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append routes: commit tx: %w", err)
	}

	return nil
}

// Return the stored routes of a run in insertion order.
func (s *SQLStore) RoutesForRun(ctx context.Context, runID uuid.UUID) (_ []domain.Route, err error) {
	defer obs.Time(ctx, "store.RoutesForRun")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	query := `
	SELECT
		id, created_at, vehicle_id, city, stops_json,
		total_distance_km, total_time_minutes, total_load_kg,
		carbon_emission_kg, method, status
	FROM routes
	WHERE run_id = ?
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), runID.String())
	if err != nil {
		return nil, fmt.Errorf("routes for run: query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0, 8)
	for rows.Next() {
		var (
			r         domain.Route
			created   sqlTime
			stopsJSON string
			status    string
		)
		err := rows.Scan(
			&r.ID, &created, &r.VehicleID, &r.City, &stopsJSON,
			&r.TotalDistanceKm, &r.TotalTimeMinutes, &r.TotalLoadKg,
			&r.CarbonEmissionKg, &r.Method, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("routes for run: scan row: %w", err)
		}

		var stops []storedStop
		if err := json.Unmarshal([]byte(stopsJSON), &stops); err != nil {
			return nil, fmt.Errorf("routes for run: route %d: decode stops: %w", r.ID, err)
		}
		for _, st := range stops {
			r.Stops = append(r.Stops, domain.RouteStop{
				Location: domain.Location{
					ID:     st.LocationID,
					Name:   st.Name,
					Coords: domain.Coordinates{Lat: st.Lat, Lon: st.Lon},
				},
				IsDepot: st.IsDepot,
			})
		}

		r.RunID = runID
		r.CreatedAt = created.Time
		r.Status = domain.Status(status)
		routes = append(routes, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("routes for run: row iteration: %w", err)
	}

	return routes, nil
}
