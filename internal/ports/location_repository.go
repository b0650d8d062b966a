package ports

import (
	"context"
	"surplus-redistribution-service/internal/domain"
)

// Port: the location registry source.
type LocationRepository interface {
	// Retrieve every known location in a stable order.
	ListLocations(ctx context.Context) ([]domain.Location, error)
}
