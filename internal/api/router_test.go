package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surplus-redistribution-service/internal/adapters/distance"
	"surplus-redistribution-service/internal/adapters/lock"
	"surplus-redistribution-service/internal/adapters/repositories"
	"surplus-redistribution-service/internal/api/dto"
	"surplus-redistribution-service/internal/platform/db"
	"surplus-redistribution-service/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type testServer struct {
	handler http.Handler
	lock    *lock.MemoryRunLock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, repositories.InitSchema(ctx, conn, repositories.DialectSQLite))
	require.NoError(t, repositories.LoadSeed(ctx, conn, repositories.DialectSQLite, repositories.Seed{
		Locations: []repositories.LocationSeed{
			{ID: 1, Name: "Fresh Mart Soho", Kind: "retailer", Latitude: 51.5136, Longitude: -0.1365, City: "London"},
			{ID: 2, Name: "Fresh Mart Holborn", Kind: "retailer", Latitude: 51.5174, Longitude: -0.1200, City: "London"},
			{ID: 3, Name: "City Harvest", Kind: "food_bank", Latitude: 51.5250, Longitude: -0.1000, CapacityKg: 800, City: "London"},
			{ID: 4, Name: "Green Compost", Kind: "compost_facility", Latitude: 51.4900, Longitude: -0.0600, City: "London"},
			{ID: 5, Name: "Central Depot", Kind: "warehouse", Latitude: 51.5000, Longitude: -0.1200, City: "London"},
		},
		Products: []repositories.ProductSeed{
			{ID: 10, Name: "Strawberries", Category: "Fruits", Perishable: true,
				UnitPrice: decimal.RequireFromString("2.00"), UnitCost: decimal.RequireFromString("1.00"), AvgDailyDemand: 5},
		},
		Inventory: []repositories.InventorySeed{
			{StoreID: 1, ProductID: 10, SnapshotDate: "2026-03-10", QuantityOnHand: 100, DaysUntilExpiry: 5, FreshnessScore: 0.4},
		},
	}))

	store := repositories.NewSQLStore(conn, repositories.DialectSQLite)
	runLock := lock.NewMemoryRunLock()
	engine := services.NewEngine(services.EngineDeps{
		Locations: store,
		Inventory: store,
		Demand:    store,
		Actions:   store,
		Routes:    store,
		Lock:      runLock,
		Distance:  distance.NewHaversineProvider(),
	}, services.Settings{})

	return &testServer{handler: NewRouter(engine), lock: runLock}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestCascadeRunThenRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cascade/runs", `{"horizon_days": 3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run dto.CascadeRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.True(t, run.Persisted)
	assert.Equal(t, 1, run.SurplusItems)
	require.Len(t, run.Actions, 3)
	// 100 kg on hand, 15 kg expected demand.
	assert.InDelta(t, 85.0, run.Summary.TotalKg, 1e-9)
	assert.Equal(t, "cascade_tier_1", run.Actions[0].ActionType)
	assert.Equal(t, 2, run.Actions[0].DestinationID)
	assert.Equal(t, "0.00", run.Summary.Tiers["compost"].CostSaved)
	assert.NotEmpty(t, run.Flow.Edges)

	rec = s.do(t, http.MethodPost, "/routes/plans", `{"vehicles": 2, "persist": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan dto.RoutePlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.False(t, plan.Demo)
	assert.True(t, plan.Persisted)
	require.NotEmpty(t, plan.Routes)
	assert.Empty(t, plan.Unserved)

	load := 0.0
	for _, r := range plan.Routes {
		require.True(t, r.Stops[0].IsDepot)
		assert.Equal(t, 5, r.Stops[0].LocationID)
		assert.LessOrEqual(t, r.TotalLoadKg, services.DefaultVehicleCapacityKg)
		assert.LessOrEqual(t, r.TotalTimeMinutes, services.DefaultMaxRouteMinutes)
		load += r.TotalLoadKg
	}
	assert.InDelta(t, 85.0, load, 1e-6)
	assert.Len(t, plan.Map, len(plan.Routes))
	assert.Equal(t, len(plan.Routes), plan.Summary.Routes)
}

func TestRoutesWithoutActionsAreDemo(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/routes/plans", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan dto.RoutePlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.True(t, plan.Demo)
	assert.False(t, plan.Persisted)
	require.NotEmpty(t, plan.Routes)
	for _, r := range plan.Routes {
		assert.Equal(t, "Demo Route", r.Method)
	}
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name, path, body string
	}{
		{"bad json", "/cascade/runs", `{`},
		{"unknown field", "/cascade/runs", `{"horizon": 3}`},
		{"two objects", "/cascade/runs", `{} {}`},
		{"horizon out of range", "/cascade/runs", `{"horizon_days": 90}`},
		{"too many vehicles", "/routes/plans", `{"vehicles": 11}`},
		{"unknown strategy", "/routes/plans", `{"strategy": "genetic"}`},
		{"bad status", "/cascade/actions/status", `{"action_id": 1, "status": "planned"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRunInProgressIsConflict(t *testing.T) {
	s := newTestServer(t)

	release, err := s.lock.Acquire(context.Background(), services.RunLockName, time.Minute)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/cascade/runs", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, release(context.Background()))
	rec = s.do(t, http.MethodPost, "/cascade/runs", `{"persist": false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActionStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/cascade/actions/status", `{"action_id": 1, "status": "completed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/cascade/runs", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/cascade/actions/status", `{"action_id": 1, "status": "completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/cascade/actions/status", `{"action_id": 1, "status": "cancelled"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLocationsAndEquivalencies(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/locations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var locs dto.ListLocationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locs))
	assert.Len(t, locs.Locations, 5)

	rec = s.do(t, http.MethodGet, "/impact/equivalencies?co2_kg=21", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var eq map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eq))
	assert.InDelta(t, 1.0, eq["trees_planted"], 1e-9)
	assert.InDelta(t, 100.0, eq["car_km_avoided"], 1e-9)

	rec = s.do(t, http.MethodGet, "/impact/equivalencies?co2_kg=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/cascade/runs", `{"persist": false}`)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foodflow_runs_total")
}
