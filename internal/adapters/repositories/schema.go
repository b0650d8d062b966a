package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`
	CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		capacity_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
		city TEXT NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		perishable {{bool}} NOT NULL,
		unit_price {{money}} NOT NULL,
		unit_cost {{money}} NOT NULL,
		avg_daily_demand DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS inventory (
		store_id INTEGER NOT NULL REFERENCES locations(id),
		product_id INTEGER NOT NULL REFERENCES products(id),
		snapshot_date {{date}} NOT NULL,
		quantity_on_hand DOUBLE PRECISION NOT NULL,
		days_until_expiry INTEGER NOT NULL,
		freshness_score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (store_id, product_id, snapshot_date)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS demand_forecasts (
		store_id INTEGER NOT NULL REFERENCES locations(id),
		product_id INTEGER NOT NULL REFERENCES products(id),
		forecast_date {{date}} NOT NULL,
		predicted_demand DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (store_id, product_id, forecast_date)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS ledger_runs (
		run_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		created_at {{timestamp}} NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS waste_cascade_actions (
		id {{serial}},
		run_id TEXT NOT NULL REFERENCES ledger_runs(run_id),
		created_at {{timestamp}} NOT NULL,
		source_id INTEGER NOT NULL,
		destination_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		product_name TEXT NOT NULL,
		source_name TEXT NOT NULL,
		destination_name TEXT NOT NULL,
		quantity_kg DOUBLE PRECISION NOT NULL,
		tier INTEGER NOT NULL,
		carbon_saved_kg DOUBLE PRECISION NOT NULL,
		cost_saved {{money}} NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL DEFAULT 'planned'
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS carbon_impact (
		id {{serial}},
		action_id BIGINT NOT NULL REFERENCES waste_cascade_actions(id),
		impact_date {{timestamp}} NOT NULL,
		action_type TEXT NOT NULL,
		description TEXT NOT NULL,
		food_saved_kg DOUBLE PRECISION NOT NULL,
		carbon_saved_kg DOUBLE PRECISION NOT NULL,
		cost_saved {{money}} NOT NULL,
		store_id INTEGER NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS routes (
		id {{serial}},
		run_id TEXT NOT NULL REFERENCES ledger_runs(run_id),
		created_at {{timestamp}} NOT NULL,
		vehicle_id TEXT NOT NULL,
		city TEXT NOT NULL,
		stops_json TEXT NOT NULL,
		total_distance_km DOUBLE PRECISION NOT NULL,
		total_time_minutes DOUBLE PRECISION NOT NULL,
		total_load_kg DOUBLE PRECISION NOT NULL,
		carbon_emission_kg DOUBLE PRECISION NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'planned'
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_waste_cascade_actions_status
	ON waste_cascade_actions(status);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_inventory_snapshot_date
	ON inventory(snapshot_date);
	`,
}

// InitSchema creates every table the store needs in the given dialect.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	types := dialect.types()
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, types.Replace(stmt)); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
