package services

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/domain"
)

const (
	demoStopsPerRoute = 3
	demoMinLoadKg     = 200.0
	demoLoadSpreadKg  = 600.0
)

// DemoRoutes pairs retailers with nearby food banks and compost facilities so
// callers have something to display before any cascade has run.
//
// Each vehicle starts at one retailer, taken in registry order, and visits
// its nearest destinations while the route stays within the max duration.
// Loads come from a PRNG seeded by the planner, so the same registry always
// yields the same routes. This is a placeholder, not an optimization.
func (rp *RoutePlanner) DemoRoutes(registry *domain.Registry, city string, opts RouteOptions) []domain.Route {
	opts = opts.withDefaults()

	retailers := registry.OfKind(domain.KindRetailer)
	dests := append(registry.OfKind(domain.KindFoodBank), registry.OfKind(domain.KindCompostFacility)...)
	if city != "" {
		retailers = domain.InCity(retailers, city)
		dests = domain.InCity(dests, city)
	}
	if len(retailers) == 0 || len(dests) == 0 {
		return []domain.Route{}
	}

	rng := rand.New(rand.NewPCG(rp.seed, rp.seed^0x9e3779b97f4a7c15))
	p := &Problem{SpeedKmh: opts.SpeedKmh, MaxDurationMin: opts.MaxDurationMin, MaxRouteKm: opts.MaxRouteKm}

	// Loads stay within vehicle capacity.
	hi := min(demoMinLoadKg+demoLoadSpreadKg, opts.CapacityKg)
	lo := min(demoMinLoadKg, hi/2)

	n := min(opts.Vehicles, len(retailers))
	routes := make([]domain.Route, 0, n)
	for vi := 0; vi < n; vi++ {
		start := retailers[vi]
		if start.Coords.Validate() != nil {
			continue
		}

		// Nearest first so each vehicle serves a compact band of destinations.
		type near struct {
			loc domain.Location
			km  float64
		}
		ranked := make([]near, 0, len(dests))
		for _, d := range dests {
			if d.Coords.Validate() != nil {
				continue
			}
			ranked = append(ranked, near{loc: d, km: rp.distance.DistanceKm(start.Coords, d.Coords)})
		}
		slices.SortFunc(ranked, func(a, b near) int {
			if c := cmp.Compare(a.km, b.km); c != 0 {
				return c
			}
			return cmp.Compare(a.loc.ID, b.loc.ID)
		})

		stops := []domain.RouteStop{{Location: start, IsDepot: true}}
		prev := start
		km := 0.0
		for _, r := range ranked {
			if len(stops) > demoStopsPerRoute {
				break
			}
			leg := rp.distance.DistanceKm(prev.Coords, r.loc.Coords)
			back := rp.distance.DistanceKm(r.loc.Coords, start.Coords)
			if !p.withinLimits(km + leg + back) {
				continue
			}
			stops = append(stops, domain.RouteStop{Location: r.loc})
			km += leg
			prev = r.loc
		}
		if len(stops) == 1 {
			continue
		}
		km += rp.distance.DistanceKm(prev.Coords, start.Coords)

		load := lo + rng.Float64()*(hi-lo)
		routes = append(routes, domain.Route{
			VehicleID:        fmt.Sprintf("V%d", len(routes)+1),
			City:             start.City,
			Stops:            stops,
			TotalDistanceKm:  km,
			TotalTimeMinutes: p.TimeMinutes(km),
			TotalLoadKg:      load,
			CarbonEmissionKg: carbon.TransportCO2(km, load),
			Method:           domain.MethodDemo,
			Status:           domain.StatusPlanned,
		})
	}
	return routes
}
