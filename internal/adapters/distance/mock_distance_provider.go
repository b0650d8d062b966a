package distance

import "surplus-redistribution-service/internal/domain"

type MockPair struct {
	From, To domain.Coordinates
	Km       float64
}

// MockDistanceProvider returns fixed distances for known pairs in either
// direction and falls back to the haversine distance otherwise.
type MockDistanceProvider struct {
	m map[[2]domain.Coordinates]float64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[[2]domain.Coordinates]float64, 2*len(pairs))
	for _, p := range pairs {
		m[[2]domain.Coordinates{p.From, p.To}] = p.Km
		m[[2]domain.Coordinates{p.To, p.From}] = p.Km
	}
	return &MockDistanceProvider{m: m}
}

func (p *MockDistanceProvider) DistanceKm(from, to domain.Coordinates) float64 {
	if from == to {
		return 0
	}
	if km, ok := p.m[[2]domain.Coordinates{from, to}]; ok {
		return km
	}
	return Haversine(from, to)
}
