package domain

import "github.com/shopspring/decimal"

// ExpiringSoonDays is the expiry threshold below which the whole stock must move.
const ExpiringSoonDays = 2

// InventoryRecord is one store x product row of the latest inventory snapshot,
// joined with the product and store attributes the engine needs.
type InventoryRecord struct {
	StoreID         int
	ProductID       int
	ProductName     string
	Category        string
	Perishable      bool
	UnitPrice       decimal.Decimal
	UnitCost        decimal.Decimal
	AvgDailyDemand  float64
	QuantityOnHand  float64
	DaysUntilExpiry int
	FreshnessScore  float64
}

// StockKey identifies a store x product pair.
type StockKey struct {
	StoreID   int
	ProductID int
}

// SurplusItem is a derived, per-run candidate for redistribution. It is never persisted.
type SurplusItem struct {
	Source          Location
	ProductID       int
	ProductName     string
	Category        string
	UnitPrice       decimal.Decimal
	UnitCost        decimal.Decimal
	QuantityOnHand  float64
	DailyDemand     float64
	FreshnessScore  float64
	DaysUntilExpiry int
	SurplusQty      float64
	Urgency         float64
}

// ExpiringSoon reports whether the item must be moved in full.
func (s SurplusItem) ExpiringSoon() bool { return s.DaysUntilExpiry <= ExpiringSoonDays }
