package domain

import "fmt"

// Vehicle accumulates stops while a route is being built.
type Vehicle struct {
	ID            string
	CapacityKg    float64
	LoadKg        float64
	MaxDistanceKm float64
	DistanceKm    float64
}

func NewVehicle(n int, capacityKg, maxDistanceKm float64) *Vehicle {
	return &Vehicle{
		ID:            fmt.Sprintf("V%d", n),
		CapacityKg:    capacityKg,
		MaxDistanceKm: maxDistanceKm,
	}
}

// Fits reports whether a stop with the given demand and the extra distance
// (including the return leg) keeps the vehicle within its limits.
func (v *Vehicle) Fits(demandKg, extraKm float64) bool {
	return v.LoadKg+demandKg <= v.CapacityKg && v.DistanceKm+extraKm <= v.MaxDistanceKm
}

// Load records a stop with the given demand and leg distance.
func (v *Vehicle) Load(demandKg, legKm float64) error {
	if v.LoadKg+demandKg > v.CapacityKg {
		return fmt.Errorf("load vehicle: %s is at capacity (load=%.1f demand=%.1f capacity=%.1f)",
			v.ID, v.LoadKg, demandKg, v.CapacityKg)
	}
	v.LoadKg += demandKg
	v.DistanceKm += legKm
	return nil
}
