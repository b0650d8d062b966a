package domain

import "github.com/shopspring/decimal"

// TierStats accumulates the output of one tier during a run.
type TierStats struct {
	Kg            float64
	CarbonSavedKg float64
	CostSaved     decimal.Decimal
	Actions       int
}

// RunSummary is accumulated in memory while actions are produced.
type RunSummary struct {
	Tiers              map[Tier]*TierStats
	TotalActions       int
	TotalKg            float64
	TotalCarbonSavedKg float64
	TotalCostSaved     decimal.Decimal
	UnresolvedKg       float64
	Warnings           []string
}

func NewRunSummary() *RunSummary {
	return &RunSummary{
		Tiers: map[Tier]*TierStats{
			TierRetailer: {},
			TierFoodBank: {},
			TierCompost:  {},
		},
	}
}

// Add records a produced action in the per-tier and overall totals.
func (s *RunSummary) Add(a CascadeAction) {
	ts := s.Tiers[a.Tier]
	ts.Kg += a.QuantityKg
	ts.CarbonSavedKg += a.CarbonSavedKg
	ts.CostSaved = ts.CostSaved.Add(a.CostSaved)
	ts.Actions++

	s.TotalActions++
	s.TotalKg += a.QuantityKg
	s.TotalCarbonSavedKg += a.CarbonSavedKg
	s.TotalCostSaved = s.TotalCostSaved.Add(a.CostSaved)
}

// KgForTier returns moved kg for t.
func (s *RunSummary) KgForTier(t Tier) float64 {
	if ts, ok := s.Tiers[t]; ok {
		return ts.Kg
	}
	return 0
}
