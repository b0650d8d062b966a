package distance

import (
	"math"

	"surplus-redistribution-service/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// HaversineProvider implements DistanceProvider and DistanceMatrixProvider
// with great-circle distances. It holds no state and is safe for concurrent use.
type HaversineProvider struct{}

func NewHaversineProvider() *HaversineProvider {
	return &HaversineProvider{}
}

// DistanceKm returns the great-circle distance between from and to.
// Coordinates are not validated here.
func (HaversineProvider) DistanceKm(from, to domain.Coordinates) float64 {
	return Haversine(from, to)
}

// Matrix returns the symmetric N x N distance matrix for points.
func (h HaversineProvider) Matrix(points []domain.Coordinates) [][]float64 {
	n := len(points)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Haversine(points[i], points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// Haversine computes the great-circle distance in kilometers.
func Haversine(a, b domain.Coordinates) float64 {
	if a == b {
		return 0
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// Guard against rounding pushing h just above 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}
