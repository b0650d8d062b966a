package domain

import (
	"time"

	"github.com/google/uuid"
)

// Route methods reported to callers.
const (
	MethodConstrained = "Constrained VRP"
	MethodGreedy      = "Greedy Nearest-Neighbor"
	MethodDemo        = "Demo Route"
)

// Represents a single stop in a vehicle route.
type RouteStop struct {
	Location Location
	IsDepot  bool
}

// Represents the planned route for a single vehicle.
// The first stop is the depot; the return leg to the depot is included in
// the distance and time totals but not repeated in Stops.
type Route struct {
	ID               int64
	RunID            uuid.UUID
	CreatedAt        time.Time
	VehicleID        string
	City             string
	Stops            []RouteStop
	TotalDistanceKm  float64
	TotalTimeMinutes float64
	TotalLoadKg      float64
	CarbonEmissionKg float64
	Method           string
	Status           Status
}

// Coordinates returns the stop coordinates in visiting order.
func (r Route) Coordinates() [][]float64 {
	out := make([][]float64, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, s.Location.Coords.LatLon())
	}
	return out
}
