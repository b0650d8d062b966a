package services

import (
	"cmp"
	"slices"

	"surplus-redistribution-service/internal/domain"
)

const (
	// Minimal surplus worth moving, in kg.
	surplusThresholdKg = 5.0

	urgencyFreshnessWeight = 0.4
	urgencySurplusWeight   = 0.3
	urgencyExpiryWeight    = 0.3
)

// IdentifySurplus joins the latest inventory with predicted demand and returns
// the items worth redistributing, most urgent first.
//
// Demand missing from the forecast falls back to the product's average daily
// demand. Only perishable products held by retailer locations participate.
// An empty join yields an empty slice.
func IdentifySurplus(
	records []domain.InventoryRecord,
	demand map[domain.StockKey]float64,
	registry *domain.Registry,
	horizonDays int,
) []domain.SurplusItem {
	items := make([]domain.SurplusItem, 0)

	for _, r := range records {
		if !r.Perishable {
			continue
		}

		store, ok := registry.Get(r.StoreID)
		if !ok || store.Kind != domain.KindRetailer {
			continue
		}

		daily, ok := demand[domain.StockKey{StoreID: r.StoreID, ProductID: r.ProductID}]
		if !ok {
			daily = r.AvgDailyDemand
		}

		expected := daily * float64(horizonDays)
		surplus := r.QuantityOnHand - expected

		// Expiring stock must move in full, regardless of demand headroom.
		expiringSoon := r.DaysUntilExpiry <= domain.ExpiringSoonDays
		if expiringSoon {
			surplus = r.QuantityOnHand
		}

		if !(surplus > surplusThresholdKg || (expiringSoon && r.QuantityOnHand > surplusThresholdKg)) {
			continue
		}

		items = append(items, domain.SurplusItem{
			Source:          store,
			ProductID:       r.ProductID,
			ProductName:     r.ProductName,
			Category:        r.Category,
			UnitPrice:       r.UnitPrice,
			UnitCost:        r.UnitCost,
			QuantityOnHand:  r.QuantityOnHand,
			DailyDemand:     daily,
			FreshnessScore:  r.FreshnessScore,
			DaysUntilExpiry: r.DaysUntilExpiry,
			SurplusQty:      surplus,
			Urgency:         Urgency(r.FreshnessScore, surplus, r.DaysUntilExpiry),
		})
	}

	// Most urgent first; ids break ties so runs are reproducible.
	slices.SortStableFunc(items, func(a, b domain.SurplusItem) int {
		if c := cmp.Compare(b.Urgency, a.Urgency); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Source.ID, b.Source.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	return items
}

// Urgency combines staleness, presence of surplus and time to expiry.
func Urgency(freshness, surplusQty float64, daysUntilExpiry int) float64 {
	hasSurplus := 0.0
	if surplusQty > 0 {
		hasSurplus = 1
	}
	return urgencyFreshnessWeight*(1-freshness) +
		urgencySurplusWeight*hasSurplus +
		urgencyExpiryWeight*(1/float64(daysUntilExpiry+1))
}
