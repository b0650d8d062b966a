package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Seed is the JSON document loaded by SeedFromJSON.
type Seed struct {
	Locations []LocationSeed  `json:"locations" validate:"dive"`
	Products  []ProductSeed   `json:"products" validate:"dive"`
	Inventory []InventorySeed `json:"inventory" validate:"dive"`
	Forecasts []ForecastSeed  `json:"forecasts" validate:"dive"`
}

type LocationSeed struct {
	ID         int     `json:"id" validate:"gt=0"`
	Name       string  `json:"name" validate:"required"`
	Kind       string  `json:"kind" validate:"oneof=retailer food_bank compost_facility warehouse"`
	Latitude   float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"gte=-180,lte=180"`
	CapacityKg float64 `json:"capacity_kg" validate:"gte=0"`
	City       string  `json:"city" validate:"required"`
}

type ProductSeed struct {
	ID             int             `json:"id" validate:"gt=0"`
	Name           string          `json:"name" validate:"required"`
	Category       string          `json:"category" validate:"required"`
	Perishable     bool            `json:"perishable"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	AvgDailyDemand float64         `json:"avg_daily_demand" validate:"gte=0"`
}

type InventorySeed struct {
	StoreID         int     `json:"store_id" validate:"gt=0"`
	ProductID       int     `json:"product_id" validate:"gt=0"`
	SnapshotDate    string  `json:"snapshot_date" validate:"datetime=2006-01-02"`
	QuantityOnHand  float64 `json:"quantity_on_hand" validate:"gte=0"`
	DaysUntilExpiry int     `json:"days_until_expiry" validate:"gte=0"`
	FreshnessScore  float64 `json:"freshness_score" validate:"gte=0,lte=1"`
}

type ForecastSeed struct {
	StoreID         int     `json:"store_id" validate:"gt=0"`
	ProductID       int     `json:"product_id" validate:"gt=0"`
	ForecastDate    string  `json:"forecast_date" validate:"datetime=2006-01-02"`
	PredictedDemand float64 `json:"predicted_demand" validate:"gte=0"`
}

var seedValidator = validator.New(validator.WithRequiredStructEnabled())

// SeedFromJSON upserts the reference data and snapshots found in jsonPath.
// The whole file is loaded in one transaction.
func SeedFromJSON(ctx context.Context, db *sql.DB, dialect Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed database: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed database: parse json: %w", err)
	}

	return LoadSeed(ctx, db, dialect, data)
}

// LoadSeed validates and upserts an in-memory seed document.
func LoadSeed(ctx context.Context, db *sql.DB, dialect Dialect, data Seed) error {
	if db == nil {
		return errors.New("seed database: DB is nil")
	}
	if err := seedValidator.Struct(data); err != nil {
		return fmt.Errorf("seed database: invalid seed: %w", err)
	}
	for i, p := range data.Products {
		if p.UnitPrice.IsNegative() || p.UnitCost.IsNegative() {
			return fmt.Errorf("seed database: product at index %d: negative price or cost", i+1)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed database: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	batches := []struct {
		name  string
		query string
		rows  [][]any
	}{
		{
			name: "locations",
			query: `
			INSERT INTO locations (id, name, kind, latitude, longitude, capacity_kg, city)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				kind = excluded.kind,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				capacity_kg = excluded.capacity_kg,
				city = excluded.city;
			`,
			rows: mapRows(data.Locations, func(l LocationSeed) []any {
				return []any{l.ID, l.Name, l.Kind, l.Latitude, l.Longitude, l.CapacityKg, l.City}
			}),
		},
		{
			name: "products",
			query: `
			INSERT INTO products (id, name, category, perishable, unit_price, unit_cost, avg_daily_demand)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				perishable = excluded.perishable,
				unit_price = excluded.unit_price,
				unit_cost = excluded.unit_cost,
				avg_daily_demand = excluded.avg_daily_demand;
			`,
			rows: mapRows(data.Products, func(p ProductSeed) []any {
				return []any{p.ID, p.Name, p.Category, p.Perishable, p.UnitPrice.StringFixed(2), p.UnitCost.StringFixed(2), p.AvgDailyDemand}
			}),
		},
		{
			name: "inventory",
			query: `
			INSERT INTO inventory (store_id, product_id, snapshot_date, quantity_on_hand, days_until_expiry, freshness_score)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (store_id, product_id, snapshot_date) DO UPDATE SET
				quantity_on_hand = excluded.quantity_on_hand,
				days_until_expiry = excluded.days_until_expiry,
				freshness_score = excluded.freshness_score;
			`,
			rows: mapRows(data.Inventory, func(r InventorySeed) []any {
				return []any{r.StoreID, r.ProductID, r.SnapshotDate, r.QuantityOnHand, r.DaysUntilExpiry, r.FreshnessScore}
			}),
		},
		{
			name: "demand_forecasts",
			query: `
			INSERT INTO demand_forecasts (store_id, product_id, forecast_date, predicted_demand)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (store_id, product_id, forecast_date) DO UPDATE SET
				predicted_demand = excluded.predicted_demand;
			`,
			rows: mapRows(data.Forecasts, func(f ForecastSeed) []any {
				return []any{f.StoreID, f.ProductID, f.ForecastDate, f.PredictedDemand}
			}),
		},
	}

	for _, b := range batches {
		if len(b.rows) == 0 {
			continue
		}

		stmt, err := tx.PrepareContext(ctx, dialect.Rebind(b.query))
		if err != nil {
			return fmt.Errorf("seed database: prepare %s insert: %w", b.name, err)
		}
		for i, args := range b.rows {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("seed database: insert %s row %d: %w", b.name, i+1, err)
			}
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("seed database: close %s statement: %w", b.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed database: commit tx: %w", err)
	}

	return nil
}

func mapRows[T any](items []T, f func(T) []any) [][]any {
	out := make([][]any, 0, len(items))
	for _, it := range items {
		out = append(out, f(it))
	}
	return out
}

// Today is the date key used for forecast lookups.
func Today(now time.Time) string { return now.Format(time.DateOnly) }
