package ports

import "surplus-redistribution-service/internal/domain"

// Contract for computing straight-line travel distance between two points.
type DistanceProvider interface {
	// Return the distance in kilometers between two coordinates.
	DistanceKm(from, to domain.Coordinates) float64
}
