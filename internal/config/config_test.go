package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"surplus-redistribution-service/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadEngineConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEngineConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEngineConfig(), cfg)
}

func TestLoadEngineConfigOverrides(t *testing.T) {
	path := writeFile(t, `
cascade:
  horizon_days: 5
routing:
  vehicles: 4
  solve_budget: 2s
  strategy: greedy
carbon_factors:
  Fruits: 2.0
`)

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Cascade.HorizonDays)
	assert.Equal(t, services.DefaultMaxRedistributionKm, cfg.Cascade.MaxRedistributionKm)
	assert.Equal(t, 4, cfg.Routing.Vehicles)
	assert.Equal(t, 2*time.Second, cfg.Routing.SolveBudget)

	s := cfg.Settings(time.Minute)
	assert.Equal(t, services.StrategyGreedy, s.Route.Strategy)
	assert.Equal(t, services.DefaultVehicleCapacityKg, s.Route.CapacityKg)
	assert.Equal(t, time.Minute, s.LockTTL)

	assert.Equal(t, 2.0, cfg.Accountant().ProductionFactor("Fruits"))
}

func TestLoadEngineConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"too many vehicles": "routing:\n  vehicles: 11\n",
		"unknown strategy":  "routing:\n  strategy: genetic\n",
		"negative factor":   "carbon_factors:\n  Fruits: -1\n",
		"bad yaml":          "routing: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadEngineConfig(writeFile(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://localhost/foodflow")
	t.Setenv("RUN_LOCK_TTL", "30s")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/foodflow", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, "9090", cfg.Port)

	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load()
	require.Error(t, err)
}

func TestGet(t *testing.T) {
	t.Setenv("FOODFLOW_TEST_KEY", "")
	assert.Equal(t, "fallback", Get("FOODFLOW_TEST_KEY", "fallback"))
	t.Setenv("FOODFLOW_TEST_KEY", "set")
	assert.Equal(t, "set", Get("FOODFLOW_TEST_KEY", "fallback"))
}
