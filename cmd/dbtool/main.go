package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"surplus-redistribution-service/internal/app"
	"surplus-redistribution-service/internal/config"
	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/platform/obs"
	"surplus-redistribution-service/internal/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg       config.Config
	engineCfg config.EngineConfig

	seedPath    string
	horizonDays int
	maxKm       float64
	vehicles    int
	city        string
	strategy    string
	dryRun      bool

	rootCmd = &cobra.Command{
		Use:           "dbtool",
		Short:         "Prepare the surplus database and run the engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Debug("no .env file found, using environment variables")
			}

			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if err := obs.SetupLogger(cfg.LogLevel); err != nil {
				return err
			}
			engineCfg, err = config.LoadEngineConfig(cfg.EngineConfigPath)
			return err
		},
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create the schema and load the seed file",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cascadeCmd = &cobra.Command{
		Use:   "cascade",
		Short: "Identify surplus and allocate it across the cascade tiers",
		Args:  cobra.NoArgs,
		RunE:  runCascade,
	}

	routesCmd = &cobra.Command{
		Use:   "routes",
		Short: "Plan vehicle routes for pending cascade actions",
		Args:  cobra.NoArgs,
		RunE:  runRoutes,
	}
)

func init() {
	initCmd.Flags().StringVar(&seedPath, "seed", "", "seed file (defaults to SEED_PATH)")

	cascadeCmd.Flags().IntVar(&horizonDays, "horizon", 0, "forecast horizon in days (0 uses the engine config)")
	cascadeCmd.Flags().Float64Var(&maxKm, "max-km", 0, "max peer redistribution distance in km (0 uses the engine config)")
	cascadeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write actions to the ledger")

	routesCmd.Flags().IntVar(&vehicles, "vehicles", 0, "vehicles per city (0 uses the engine config)")
	routesCmd.Flags().StringVar(&city, "city", "", "plan a single city")
	routesCmd.Flags().StringVar(&strategy, "strategy", "", "auto, constrained or greedy")
	routesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not write routes to the ledger")

	rootCmd.AddCommand(initCmd, cascadeCmd, routesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("dbtool failed", "err", err)
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.Open(ctx, cfg, engineCfg)
	if err != nil {
		return nil, err
	}
	if err := a.InitAndSeed(ctx, ""); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	path := seedPath
	if path == "" {
		path = cfg.SeedPath
	}

	a, err := app.Open(ctx, cfg, engineCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("initializing database", "driver", cfg.DBDriver, "seed", path)
	if err := a.InitAndSeed(ctx, path); err != nil {
		return err
	}

	locs, err := a.Store.ListLocations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database ready: %d locations\n", len(locs))
	return nil
}

func runCascade(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.Engine.RunCascade(ctx, services.RunCascadeRequest{
		HorizonDays:   horizonDays,
		MaxDistanceKm: maxKm,
		Persist:       !dryRun,
	})
	if run != nil {
		printCascade(cmd, run)
	}
	return err
}

func printCascade(cmd *cobra.Command, run *services.CascadeRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d surplus items, %d actions, persisted=%t\n",
		run.RunID, run.SurplusItems, len(run.Actions), run.Persisted)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tACTIONS\tKG\tCO2 SAVED KG\tCOST SAVED")
	for _, tier := range []domain.Tier{domain.TierRetailer, domain.TierFoodBank, domain.TierCompost} {
		ts := run.Summary.Tiers[tier]
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%s\n", tier, ts.Actions, ts.Kg, ts.CarbonSavedKg, ts.CostSaved.StringFixed(2))
	}
	fmt.Fprintf(tw, "total\t%d\t%.1f\t%.1f\t%s\n", run.Summary.TotalActions, run.Summary.TotalKg,
		run.Summary.TotalCarbonSavedKg, run.Summary.TotalCostSaved.StringFixed(2))
	_ = tw.Flush()

	if run.Summary.UnresolvedKg > 0 {
		fmt.Fprintf(out, "unresolved: %.1f kg\n", run.Summary.UnresolvedKg)
	}
	for _, w := range run.Summary.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.Engine.PlanRoutes(ctx, services.PlanRoutesInput{
		Vehicles: vehicles,
		City:     city,
		Strategy: services.StrategyName(strategy),
		Persist:  !dryRun,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d routes, demo=%t, persisted=%t\n",
		run.RunID, len(run.Plan.Routes), run.Plan.Demo, run.Persisted)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CITY\tVEHICLE\tSTOPS\tKM\tMIN\tLOAD KG\tMETHOD")
	for _, r := range run.Plan.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.0f\t%.1f\t%s\n",
			r.City, r.VehicleID, len(r.Stops), r.TotalDistanceKm, r.TotalTimeMinutes, r.TotalLoadKg, r.Method)
	}
	_ = tw.Flush()

	for _, u := range run.Plan.Unserved {
		fmt.Fprintf(out, "unserved: %s (%d) %.1f kg: %s\n", u.Name, u.LocationID, u.DemandKg, u.Reason)
	}
	for _, w := range run.Plan.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	fmt.Fprintf(out, "estimated transport CO2 saved: %.2f kg\n", run.Summary.EstimatedSavedCO2)
	return nil
}
