package ports

import "surplus-redistribution-service/internal/domain"

// Optional extension of DistanceProvider that supports batched lookups.
type DistanceMatrixProvider interface {
	DistanceProvider
	// Return the full N x N distance matrix for points, in kilometers.
	Matrix(points []domain.Coordinates) [][]float64
}
