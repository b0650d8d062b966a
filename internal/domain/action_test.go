package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCascadeActionValidate(t *testing.T) {
	valid := CascadeAction{
		SourceID:      1,
		DestinationID: 2,
		QuantityKg:    10,
		Tier:          TierFoodBank,
		CarbonSavedKg: 30,
		CostSaved:     decimal.NewFromInt(10),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	same := valid
	same.DestinationID = 1
	if err := same.Validate(); err == nil {
		t.Errorf("expected error for source == destination")
	}

	zero := valid
	zero.QuantityKg = 0
	if err := zero.Validate(); err == nil {
		t.Errorf("expected error for zero quantity")
	}

	badTier := valid
	badTier.Tier = 4
	if err := badTier.Validate(); err == nil {
		t.Errorf("expected error for tier 4")
	}
}

func TestStatusTransitions(t *testing.T) {
	if !StatusPlanned.CanTransition(StatusCompleted) {
		t.Errorf("planned -> completed should be allowed")
	}
	if !StatusPlanned.CanTransition(StatusCancelled) {
		t.Errorf("planned -> cancelled should be allowed")
	}
	if StatusCompleted.CanTransition(StatusCancelled) {
		t.Errorf("completed -> cancelled should be rejected")
	}
	if StatusPlanned.CanTransition(StatusPlanned) {
		t.Errorf("planned -> planned should be rejected")
	}
}

func TestImpactFor(t *testing.T) {
	a := CascadeAction{
		SourceID:        7,
		DestinationID:   9,
		ProductName:     "Strawberries",
		SourceName:      "Market North",
		DestinationName: "City Food Bank",
		QuantityKg:      12.5,
		Tier:            TierFoodBank,
		CarbonSavedKg:   42,
		CostSaved:       decimal.RequireFromString("18.75"),
	}

	got := ImpactFor(a)
	if got.ActionType != "cascade_tier_2" {
		t.Errorf("action type = %q, want cascade_tier_2", got.ActionType)
	}
	if got.Description != "Strawberries: Market North -> City Food Bank" {
		t.Errorf("description = %q", got.Description)
	}
	if got.StoreID != 7 || got.FoodSavedKg != 12.5 {
		t.Errorf("impact = %+v", got)
	}
}

func TestCoordinatesValidate(t *testing.T) {
	if err := (Coordinates{Lat: 51.5, Lon: -0.12}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Coordinates{Lat: 91, Lon: 0}).Validate(); err == nil {
		t.Errorf("expected latitude error")
	}
	if err := (Coordinates{Lat: 0, Lon: -181}).Validate(); err == nil {
		t.Errorf("expected longitude error")
	}
}
