package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/obs"
)

// SQLStore implements the location, inventory and demand read ports and the
// action and route ledgers over database/sql. It works with the sqlite and
// pgx drivers.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{DB: db, Dialect: dialect, now: time.Now}
}

func (s *SQLStore) check() error {
	if s.DB == nil {
		return errors.New("sql store: DB is nil")
	}
	return nil
}

// Return every location ordered by id.
func (s *SQLStore) ListLocations(ctx context.Context) (_ []domain.Location, err error) {
	defer obs.Time(ctx, "store.ListLocations")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	query := `
	SELECT
		id,
		name,
		kind,
		latitude,
		longitude,
		capacity_kg,
		city
	FROM locations
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list locations: query locations table: %w", err)
	}
	defer rows.Close()

	locations := make([]domain.Location, 0, 64)
	for rows.Next() {
		var l domain.Location
		var kind string
		if err := rows.Scan(&l.ID, &l.Name, &kind, &l.Coords.Lat, &l.Coords.Lon, &l.CapacityKg, &l.City); err != nil {
			return nil, fmt.Errorf("list locations: scan row: %w", err)
		}
		l.Kind = domain.LocationKind(kind)
		locations = append(locations, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locations: row iteration: %w", err)
	}

	return locations, nil
}

// Return the rows of the most recent snapshot date for perishable products
// held by retailers.
func (s *SQLStore) LatestInventory(ctx context.Context) (_ []domain.InventoryRecord, err error) {
	defer obs.Time(ctx, "store.LatestInventory")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	query := `
	SELECT
		i.store_id,
		i.product_id,
		p.name,
		p.category,
		p.perishable,
		p.unit_price,
		p.unit_cost,
		p.avg_daily_demand,
		i.quantity_on_hand,
		i.days_until_expiry,
		i.freshness_score
	FROM inventory i
	JOIN products p ON p.id = i.product_id
	JOIN locations l ON l.id = i.store_id
	WHERE i.snapshot_date = (SELECT MAX(snapshot_date) FROM inventory)
		AND p.perishable = ?
		AND l.kind = ?
	ORDER BY i.store_id, i.product_id;
	`
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), true, string(domain.KindRetailer))
	if err != nil {
		return nil, fmt.Errorf("latest inventory: query inventory table: %w", err)
	}
	defer rows.Close()

	records := make([]domain.InventoryRecord, 0, 256)
	for rows.Next() {
		var r domain.InventoryRecord
		err := rows.Scan(
			&r.StoreID, &r.ProductID, &r.ProductName, &r.Category, &r.Perishable,
			&r.UnitPrice, &r.UnitCost, &r.AvgDailyDemand,
			&r.QuantityOnHand, &r.DaysUntilExpiry, &r.FreshnessScore,
		)
		if err != nil {
			return nil, fmt.Errorf("latest inventory: scan row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest inventory: row iteration: %w", err)
	}

	return records, nil
}

// Return the average predicted daily demand from today on.
func (s *SQLStore) PredictedDemand(ctx context.Context) (_ map[domain.StockKey]float64, err error) {
	defer obs.Time(ctx, "store.PredictedDemand")(&err)

	if err := s.check(); err != nil {
		return nil, err
	}

	query := `
	SELECT
		store_id,
		product_id,
		AVG(predicted_demand)
	FROM demand_forecasts
	WHERE forecast_date >= ?
	GROUP BY store_id, product_id;
	`
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), Today(s.now()))
	if err != nil {
		return nil, fmt.Errorf("predicted demand: query demand_forecasts table: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.StockKey]float64)
	for rows.Next() {
		var k domain.StockKey
		var avg float64
		if err := rows.Scan(&k.StoreID, &k.ProductID, &avg); err != nil {
			return nil, fmt.Errorf("predicted demand: scan row: %w", err)
		}
		out[k] = avg
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("predicted demand: row iteration: %w", err)
	}

	return out, nil
}
