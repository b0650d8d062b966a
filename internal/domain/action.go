package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the disposition of surplus food, in "feed people first" order.
type Tier int

const (
	TierRetailer Tier = 1
	TierFoodBank Tier = 2
	TierCompost  Tier = 3
)

func (t Tier) Valid() bool { return t >= TierRetailer && t <= TierCompost }

// ActionType is the carbon impact log label for the tier.
func (t Tier) ActionType() string { return fmt.Sprintf("cascade_tier_%d", int(t)) }

func (t Tier) String() string {
	switch t {
	case TierRetailer:
		return "retailer"
	case TierFoodBank:
		return "food_bank"
	case TierCompost:
		return "compost"
	default:
		return "unknown"
	}
}

// Status is shared by cascade actions and routes.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CanTransition reports whether execution tracking may move s to next.
// Only planned items change state.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPlanned && (next == StatusCompleted || next == StatusCancelled)
}

// CascadeAction is a single proposed transfer of one product between two locations.
type CascadeAction struct {
	ID              int64
	RunID           uuid.UUID
	CreatedAt       time.Time
	SourceID        int
	DestinationID   int
	ProductID       int
	ProductName     string
	SourceName      string
	DestinationName string
	QuantityKg      float64
	Tier            Tier
	CarbonSavedKg   float64
	CostSaved       decimal.Decimal
	DistanceKm      float64
	Status          Status
}

// Validate checks the action invariants before it is persisted.
func (a CascadeAction) Validate() error {
	if a.SourceID == a.DestinationID {
		return fmt.Errorf("validate action: source and destination are both %d", a.SourceID)
	}
	if a.QuantityKg <= 0 {
		return fmt.Errorf("validate action: quantity must be positive, got %v", a.QuantityKg)
	}
	if !a.Tier.Valid() {
		return fmt.Errorf("validate action: invalid tier %d", a.Tier)
	}
	if a.CarbonSavedKg < 0 {
		return fmt.Errorf("validate action: negative carbon saved %v", a.CarbonSavedKg)
	}
	if a.CostSaved.IsNegative() {
		return fmt.Errorf("validate action: negative cost saved %s", a.CostSaved)
	}
	return nil
}

// CarbonImpact is the log entry written alongside every persisted action.
type CarbonImpact struct {
	Date          time.Time
	ActionType    string
	Description   string
	FoodSavedKg   float64
	CarbonSavedKg float64
	CostSaved     decimal.Decimal
	StoreID       int
}

// ImpactFor builds the carbon impact log entry for a.
func ImpactFor(a CascadeAction) CarbonImpact {
	return CarbonImpact{
		Date:          a.CreatedAt,
		ActionType:    a.Tier.ActionType(),
		Description:   fmt.Sprintf("%s: %s -> %s", a.ProductName, a.SourceName, a.DestinationName),
		FoodSavedKg:   a.QuantityKg,
		CarbonSavedKg: a.CarbonSavedKg,
		CostSaved:     a.CostSaved,
		StoreID:       a.SourceID,
	}
}
