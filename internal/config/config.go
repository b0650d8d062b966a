package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/services"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Get returns the environment variable key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config is the process configuration read from the environment.
type Config struct {
	DBDriver         string
	DatabaseURL      string
	Port             string
	RedisAddr        string
	SeedPath         string
	EngineConfigPath string
	LockTTL          time.Duration
	LogLevel         string
}

// Load reads Config from the environment with local-run defaults.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:         Get("DB_DRIVER", "sqlite"),
		DatabaseURL:      Get("DATABASE_URL", "data/foodflow.db"),
		Port:             Get("PORT", "8080"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		SeedPath:         Get("SEED_PATH", "data/seeds/foodflow.json"),
		EngineConfigPath: Get("ENGINE_CONFIG", "config/engine.yaml"),
		LockTTL:          services.DefaultLockTTL,
		LogLevel:         Get("LOG_LEVEL", "info"),
	}

	if v := os.Getenv("RUN_LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("load config: RUN_LOCK_TTL: %w", err)
		}
		cfg.LockTTL = d
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("load config: PORT %q is not a number", cfg.Port)
	}
	switch cfg.DBDriver {
	case "sqlite", "pgx":
	default:
		return Config{}, fmt.Errorf("load config: DB_DRIVER %q must be sqlite or pgx", cfg.DBDriver)
	}

	return cfg, nil
}

// EngineConfig holds the tuning knobs of the cascade and routing engine.
type EngineConfig struct {
	Cascade CascadeConfig `yaml:"cascade"`
	Routing RoutingConfig `yaml:"routing"`
	// Carbon overrides production factors (kg CO2e per kg) by category.
	Carbon map[string]float64 `yaml:"carbon_factors" validate:"dive,keys,required,endkeys,gt=0"`
	// DemoSeed seeds the placeholder routes shown before any cascade ran.
	DemoSeed uint64 `yaml:"demo_seed"`
}

type CascadeConfig struct {
	HorizonDays         int     `yaml:"horizon_days" validate:"gte=1,lte=30"`
	MaxRedistributionKm float64 `yaml:"max_redistribution_km" validate:"gt=0"`
}

type RoutingConfig struct {
	Vehicles       int           `yaml:"vehicles" validate:"gte=1,lte=10"`
	CapacityKg     float64       `yaml:"capacity_kg" validate:"gt=0"`
	SpeedKmh       float64       `yaml:"speed_kmh" validate:"gt=0"`
	MaxDurationMin float64       `yaml:"max_duration_min" validate:"gt=0"`
	MaxRouteKm     float64       `yaml:"max_route_km" validate:"gt=0"`
	SolveBudget    time.Duration `yaml:"solve_budget" validate:"gt=0"`
	Strategy       string        `yaml:"strategy" validate:"oneof=auto constrained greedy"`
}

// DefaultEngineConfig mirrors the engine defaults.
func DefaultEngineConfig() EngineConfig {
	r := services.DefaultRouteOptions()
	return EngineConfig{
		Cascade: CascadeConfig{
			HorizonDays:         services.DefaultHorizonDays,
			MaxRedistributionKm: services.DefaultMaxRedistributionKm,
		},
		Routing: RoutingConfig{
			Vehicles:       r.Vehicles,
			CapacityKg:     r.CapacityKg,
			SpeedKmh:       r.SpeedKmh,
			MaxDurationMin: r.MaxDurationMin,
			MaxRouteKm:     r.MaxRouteKm,
			SolveBudget:    r.SolveBudget,
			Strategy:       string(r.Strategy),
		},
		DemoSeed: 42,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadEngineConfig reads path over the defaults. A missing file yields the
// defaults unchanged.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config: parse %q: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("load engine config: %q: %w", path, err)
	}

	return cfg, nil
}

// Settings converts the config into engine settings.
func (c EngineConfig) Settings(lockTTL time.Duration) services.Settings {
	return services.Settings{
		HorizonDays:         c.Cascade.HorizonDays,
		MaxRedistributionKm: c.Cascade.MaxRedistributionKm,
		Route: services.RouteOptions{
			Vehicles:       c.Routing.Vehicles,
			CapacityKg:     c.Routing.CapacityKg,
			SpeedKmh:       c.Routing.SpeedKmh,
			MaxDurationMin: c.Routing.MaxDurationMin,
			MaxRouteKm:     c.Routing.MaxRouteKm,
			SolveBudget:    c.Routing.SolveBudget,
			Strategy:       services.StrategyName(c.Routing.Strategy),
		},
		LockTTL:  lockTTL,
		DemoSeed: c.DemoSeed,
	}
}

// Accountant builds the carbon accountant with the configured overrides.
func (c EngineConfig) Accountant() *carbon.Accountant {
	if len(c.Carbon) == 0 {
		return carbon.Default()
	}
	return carbon.NewAccountant(c.Carbon)
}
