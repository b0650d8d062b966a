package ports

import (
	"context"
	"surplus-redistribution-service/internal/domain"
)

// Port: read side of the inventory snapshot.
type InventoryReader interface {
	// Retrieve rows of the most recent snapshot date only, for perishable
	// products held by retailer locations.
	LatestInventory(ctx context.Context) ([]domain.InventoryRecord, error)
}

// Port: read side of the demand forecasts.
type DemandReader interface {
	// Return the average predicted daily demand per store x product for
	// forecasts dated today or later. Missing keys fall back to the product
	// average carried on the inventory record.
	PredictedDemand(ctx context.Context) (map[domain.StockKey]float64, error)
}
