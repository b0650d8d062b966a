package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/db"
	"surplus-redistribution-service/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, InitSchema(ctx, conn, DialectSQLite))
	// Running it twice must be harmless.
	require.NoError(t, InitSchema(ctx, conn, DialectSQLite))

	s := NewSQLStore(conn, DialectSQLite)
	s.now = func() time.Time { return fixedNow }
	return s
}

func testSeed() Seed {
	return Seed{
		Locations: []LocationSeed{
			{ID: 1, Name: "Fresh Mart Downtown", Kind: "retailer", Latitude: 51.50, Longitude: -0.12, City: "London"},
			{ID: 2, Name: "Fresh Mart Camden", Kind: "retailer", Latitude: 51.54, Longitude: -0.14, City: "London"},
			{ID: 3, Name: "City Harvest", Kind: "food_bank", Latitude: 51.52, Longitude: -0.10, CapacityKg: 500, City: "London"},
			{ID: 4, Name: "Green Compost", Kind: "compost_facility", Latitude: 51.45, Longitude: -0.05, City: "London"},
		},
		Products: []ProductSeed{
			{ID: 10, Name: "Strawberries", Category: "Fruits", Perishable: true,
				UnitPrice: decimal.RequireFromString("2.00"), UnitCost: decimal.RequireFromString("1.00"), AvgDailyDemand: 4},
			{ID: 11, Name: "Rice", Category: "Pantry", Perishable: false,
				UnitPrice: decimal.RequireFromString("1.50"), UnitCost: decimal.RequireFromString("0.70"), AvgDailyDemand: 8},
		},
		Inventory: []InventorySeed{
			{StoreID: 1, ProductID: 10, SnapshotDate: "2026-03-09", QuantityOnHand: 50, DaysUntilExpiry: 4, FreshnessScore: 0.7},
			{StoreID: 1, ProductID: 10, SnapshotDate: "2026-03-10", QuantityOnHand: 100, DaysUntilExpiry: 3, FreshnessScore: 0.6},
			{StoreID: 1, ProductID: 11, SnapshotDate: "2026-03-10", QuantityOnHand: 80, DaysUntilExpiry: 90, FreshnessScore: 1},
			// Not a retailer: excluded from the snapshot.
			{StoreID: 3, ProductID: 10, SnapshotDate: "2026-03-10", QuantityOnHand: 30, DaysUntilExpiry: 2, FreshnessScore: 0.5},
		},
		Forecasts: []ForecastSeed{
			{StoreID: 1, ProductID: 10, ForecastDate: "2026-03-09", PredictedDemand: 100},
			{StoreID: 1, ProductID: 10, ForecastDate: "2026-03-10", PredictedDemand: 6},
			{StoreID: 1, ProductID: 10, ForecastDate: "2026-03-11", PredictedDemand: 10},
		},
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, q, DialectSQLite.Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE a = $1 AND b = $2", DialectPostgres.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("pgx")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = DialectFor("mysql")
	require.Error(t, err)
}

func TestSeedAndRead(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, LoadSeed(ctx, s.DB, s.Dialect, testSeed()))
	// Upserts: seeding again keeps one row per key.
	require.NoError(t, LoadSeed(ctx, s.DB, s.Dialect, testSeed()))

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 4)
	assert.Equal(t, 1, locs[0].ID)
	assert.Equal(t, domain.KindFoodBank, locs[2].Kind)
	assert.InDelta(t, 51.52, locs[2].Coords.Lat, 1e-9)
	assert.Equal(t, 500.0, locs[2].CapacityKg)

	inv, err := s.LatestInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1, "only the latest perishable retailer rows")
	r := inv[0]
	assert.Equal(t, 1, r.StoreID)
	assert.Equal(t, 10, r.ProductID)
	assert.Equal(t, "Strawberries", r.ProductName)
	assert.True(t, r.Perishable)
	assert.True(t, r.UnitPrice.Equal(decimal.RequireFromString("2")))
	assert.True(t, r.UnitCost.Equal(decimal.RequireFromString("1")))
	assert.Equal(t, 100.0, r.QuantityOnHand)
	assert.Equal(t, 3, r.DaysUntilExpiry)

	demand, err := s.PredictedDemand(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, demand[domain.StockKey{StoreID: 1, ProductID: 10}], 1e-9)
}

func TestSeedFromJSONRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"locations":[{"id":1,"name":"X","kind":"market","latitude":1,"longitude":1,"city":"A"}]}`), 0o600))
	require.Error(t, SeedFromJSON(ctx, s.DB, s.Dialect, path))

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func sampleActions() []domain.CascadeAction {
	return []domain.CascadeAction{
		{
			CreatedAt: fixedNow, SourceID: 1, DestinationID: 2, ProductID: 10,
			ProductName: "Strawberries", SourceName: "Fresh Mart Downtown", DestinationName: "Fresh Mart Camden",
			QuantityKg: 30, Tier: domain.TierRetailer, CarbonSavedKg: 120, CostSaved: decimal.RequireFromString("30"),
			DistanceKm: 10, Status: domain.StatusPlanned,
		},
		{
			CreatedAt: fixedNow, SourceID: 1, DestinationID: 3, ProductID: 10,
			ProductName: "Strawberries", SourceName: "Fresh Mart Downtown", DestinationName: "City Harvest",
			QuantityKg: 56, Tier: domain.TierFoodBank, CarbonSavedKg: 224, CostSaved: decimal.RequireFromString("56"),
			DistanceKm: 5, Status: domain.StatusPlanned,
		},
	}
}

func TestAppendActionsIsIdempotentPerRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, LoadSeed(ctx, s.DB, s.Dialect, testSeed()))

	runID := uuid.New()
	require.NoError(t, s.AppendActions(ctx, runID, sampleActions()))
	require.NoError(t, s.AppendActions(ctx, runID, sampleActions()))

	pending, err := s.PendingActions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, runID, pending[0].RunID)
	assert.Equal(t, domain.TierRetailer, pending[0].Tier)
	assert.True(t, pending[0].CostSaved.Equal(decimal.RequireFromString("30")))
	assert.True(t, pending[0].CreatedAt.Equal(fixedNow))

	var impacts int
	require.NoError(t, s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM carbon_impact`).Scan(&impacts))
	assert.Equal(t, 2, impacts)

	var actionType, desc string
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT action_type, description FROM carbon_impact ORDER BY id LIMIT 1`).Scan(&actionType, &desc))
	assert.Equal(t, "cascade_tier_1", actionType)
	assert.Equal(t, "Strawberries: Fresh Mart Downtown -> Fresh Mart Camden", desc)
}

func TestUpdateActionStatus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.AppendActions(ctx, uuid.New(), sampleActions()))

	pending, err := s.PendingActions(ctx)
	require.NoError(t, err)
	id := pending[0].ID

	require.NoError(t, s.UpdateActionStatus(ctx, id, domain.StatusCompleted))

	err = s.UpdateActionStatus(ctx, id, domain.StatusCancelled)
	assert.True(t, errors.Is(err, ports.ErrInvalidTransition), "got %v", err)

	err = s.UpdateActionStatus(ctx, 9999, domain.StatusCompleted)
	assert.True(t, errors.Is(err, ports.ErrNotFound), "got %v", err)

	err = s.UpdateActionStatus(ctx, pending[1].ID, domain.StatusPlanned)
	assert.True(t, errors.Is(err, ports.ErrInvalidTransition), "got %v", err)

	pending, err = s.PendingActions(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestAppendRoutesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	depot := domain.Location{ID: 5, Name: "Depot", Coords: domain.Coordinates{Lat: 51.5, Lon: -0.1}}
	stop := domain.Location{ID: 3, Name: "City Harvest", Coords: domain.Coordinates{Lat: 51.52, Lon: -0.10}}
	routes := []domain.Route{{
		VehicleID:        "V1",
		City:             "London",
		Stops:            []domain.RouteStop{{Location: depot, IsDepot: true}, {Location: stop}},
		TotalDistanceKm:  4.4,
		TotalTimeMinutes: 6.6,
		TotalLoadKg:      56,
		CarbonEmissionKg: 0.02464,
		Method:           domain.MethodGreedy,
	}}

	runID := uuid.New()
	require.NoError(t, s.AppendRoutes(ctx, runID, routes))
	require.NoError(t, s.AppendRoutes(ctx, runID, routes))

	got, err := s.RoutesForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "V1", got[0].VehicleID)
	assert.Equal(t, domain.StatusPlanned, got[0].Status)
	require.Len(t, got[0].Stops, 2)
	assert.True(t, got[0].Stops[0].IsDepot)
	assert.Equal(t, 3, got[0].Stops[1].Location.ID)
	assert.Equal(t, [][]float64{{51.5, -0.1}, {51.52, -0.10}}, got[0].Coordinates())
}
