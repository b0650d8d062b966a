package services

import (
	"testing"

	"surplus-redistribution-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgency(t *testing.T) {
	assert.InDelta(t, 0.59, Urgency(0.4, 10, 5), 1e-9)
	assert.InDelta(t, 0.4+0.3+0.3, Urgency(0, 1, 0), 1e-9)
	assert.InDelta(t, 0.3/11, Urgency(1, 0, 10), 1e-9)
}

func surplusRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.Location{store, peer, bank, compost})
}

func record(storeID, productID int, qty float64, days int) domain.InventoryRecord {
	return domain.InventoryRecord{
		StoreID:         storeID,
		ProductID:       productID,
		ProductName:     "Milk",
		Category:        "Dairy",
		Perishable:      true,
		AvgDailyDemand:  2,
		QuantityOnHand:  qty,
		DaysUntilExpiry: days,
		FreshnessScore:  0.5,
	}
}

func TestIdentifySurplusUsesForecastThenAverage(t *testing.T) {
	records := []domain.InventoryRecord{
		record(1, 10, 40, 6),
		record(2, 10, 40, 6),
	}
	demand := map[domain.StockKey]float64{{StoreID: 1, ProductID: 10}: 5}

	items := IdentifySurplus(records, demand, surplusRegistry(), 3)
	require.Len(t, items, 2)

	byStore := map[int]domain.SurplusItem{}
	for _, it := range items {
		byStore[it.Source.ID] = it
	}
	assert.InDelta(t, 25.0, byStore[1].SurplusQty, 1e-9)
	assert.InDelta(t, 5.0, byStore[1].DailyDemand, 1e-9)
	// No forecast: the average daily demand of 2 applies.
	assert.InDelta(t, 34.0, byStore[2].SurplusQty, 1e-9)
}

func TestIdentifySurplusExpiringMovesEverything(t *testing.T) {
	// Demand covers the stock, but it expires in two days.
	items := IdentifySurplus([]domain.InventoryRecord{record(1, 10, 12, 2)},
		map[domain.StockKey]float64{{StoreID: 1, ProductID: 10}: 10}, surplusRegistry(), 3)
	require.Len(t, items, 1)
	assert.InDelta(t, 12.0, items[0].SurplusQty, 1e-9)
	assert.True(t, items[0].ExpiringSoon())

	// Too little to be worth moving, even when expiring.
	items = IdentifySurplus([]domain.InventoryRecord{record(1, 10, 4, 1)}, nil, surplusRegistry(), 3)
	assert.Empty(t, items)
}

func TestIdentifySurplusThreshold(t *testing.T) {
	// 11 on hand, 6 expected: 5 kg is not above the threshold.
	items := IdentifySurplus([]domain.InventoryRecord{record(1, 10, 11, 10)}, nil, surplusRegistry(), 3)
	assert.Empty(t, items)

	items = IdentifySurplus([]domain.InventoryRecord{record(1, 10, 11.5, 10)}, nil, surplusRegistry(), 3)
	require.Len(t, items, 1)
	assert.InDelta(t, 5.5, items[0].SurplusQty, 1e-9)
}

func TestIdentifySurplusExclusions(t *testing.T) {
	shelfStable := record(1, 11, 100, 200)
	shelfStable.Perishable = false

	records := []domain.InventoryRecord{
		shelfStable,
		record(3, 10, 100, 3),  // food bank, not a retailer
		record(99, 10, 100, 3), // unknown store
	}

	items := IdentifySurplus(records, nil, surplusRegistry(), 3)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	assert.Empty(t, IdentifySurplus(nil, nil, surplusRegistry(), 3))
}

func TestIdentifySurplusOrdersByUrgency(t *testing.T) {
	stale := record(1, 12, 40, 8)
	stale.FreshnessScore = 0.1

	records := []domain.InventoryRecord{
		record(1, 10, 40, 8),
		stale,
		record(2, 10, 40, 1),
		record(1, 11, 40, 8),
	}

	items := IdentifySurplus(records, nil, surplusRegistry(), 3)
	require.Len(t, items, 4)

	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Urgency, items[i].Urgency)
	}
	assert.Equal(t, 12, items[0].ProductID)
	assert.Equal(t, 2, items[1].Source.ID)
	// Equal urgency: product id breaks the tie.
	assert.Equal(t, 10, items[2].ProductID)
	assert.Equal(t, 11, items[3].ProductID)
}
