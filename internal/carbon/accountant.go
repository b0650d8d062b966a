// Package carbon converts food quantities and transport distances into
// CO2-equivalent and monetary savings. All functions are pure.
package carbon

import (
	"maps"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// LandfillKgPerKg is the CO2e released by one kg of food waste in landfill.
	LandfillKgPerKg = 2.5
	// CompostKgPerKg is the CO2e released by composting one kg of food.
	CompostKgPerKg = 0.3
	// TransportKgPerKmTonne is the CO2e emitted moving one tonne over one km.
	TransportKgPerKmTonne = 0.1
	// DefaultProductionFactor applies to categories missing from the table.
	DefaultProductionFactor = 1.5

	distressedSaleRate = 0.5
)

var defaultFactors = map[string]float64{
	"Fruits":     0.9,
	"Vegetables": 0.7,
	"Dairy":      5.5,
	"Meat":       18.0,
	"Seafood":    8.5,
	"Bakery":     1.2,
	"Beverages":  0.8,
	"Pantry":     1.0,
	"Frozen":     2.5,
	"Snacks":     1.8,
	"Deli":       3.0,
	"Baby":       2.0,
}

// Accountant holds the category -> production factor table.
type Accountant struct {
	factors map[string]float64
}

// Default returns an accountant using the built-in factor table.
func Default() *Accountant {
	return &Accountant{factors: maps.Clone(defaultFactors)}
}

// NewAccountant returns an accountant whose table is the default table with
// overrides applied on top. Non-positive overrides are ignored.
func NewAccountant(overrides map[string]float64) *Accountant {
	a := Default()
	for cat, f := range overrides {
		if f > 0 {
			a.factors[cat] = f
		}
	}
	return a
}

// ProductionFactor returns kg CO2e emitted producing one kg of the category.
func (a *Accountant) ProductionFactor(category string) float64 {
	if f, ok := a.factors[category]; ok {
		return f
	}
	return DefaultProductionFactor
}

// FoodSavedCO2 is production avoidance plus landfill avoidance.
func (a *Accountant) FoodSavedCO2(category string, qtyKg float64) float64 {
	return a.ProductionFactor(category)*qtyKg + LandfillKgPerKg*qtyKg
}

// RedistributionCO2 is the net saving of moving qtyKg over distanceKm
// instead of discarding it. Never negative.
func (a *Accountant) RedistributionCO2(category string, qtyKg, distanceKm float64) float64 {
	return math.Max(0, a.FoodSavedCO2(category, qtyKg)-TransportCO2(distanceKm, qtyKg))
}

// CompostCO2 is the saving of composting instead of landfilling.
func CompostCO2(qtyKg float64) float64 {
	return (LandfillKgPerKg - CompostKgPerKg) * qtyKg
}

// TransportCO2 is the emission of carrying loadKg over distanceKm.
func TransportCO2(distanceKm, loadKg float64) float64 {
	return TransportKgPerKmTonne * distanceKm * (loadKg / 1000)
}

// RouteSavingsCO2 is the transport emission avoided by an optimized route
// compared with a naive one carrying the same load.
func RouteSavingsCO2(optimizedKm, naiveKm, loadKg float64) float64 {
	return TransportCO2(naiveKm, loadKg) - TransportCO2(optimizedKm, loadKg)
}

// RedistributionSaleValue is the revenue of a distressed sale to a peer
// retailer, at half the unit price, rounded to cents.
func RedistributionSaleValue(qtyKg float64, unitPrice decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(qtyKg).
		Mul(unitPrice).
		Mul(decimal.NewFromFloat(distressedSaleRate)).
		Round(2)
}

// WriteOffAvoided is the full unit cost of qtyKg that is not thrown away,
// rounded to cents.
func WriteOffAvoided(qtyKg float64, unitCost decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(qtyKg).Mul(unitCost).Round(2)
}

// Equivalencies expresses a CO2 amount in everyday terms.
type Equivalencies struct {
	TreesPlanted       float64 `json:"trees_planted"`
	CarKmAvoided       float64 `json:"car_km_avoided"`
	FlightsAvoided     float64 `json:"flights_avoided"`
	HomesPoweredDays   float64 `json:"homes_powered_days"`
	SmartphonesCharged float64 `json:"smartphones_charged"`
}

// Equivalent converts co2Kg into Equivalencies. Negative input yields zeros.
func Equivalent(co2Kg float64) Equivalencies {
	if co2Kg < 0 || math.IsNaN(co2Kg) {
		co2Kg = 0
	}
	return Equivalencies{
		TreesPlanted:       co2Kg / 21,
		CarKmAvoided:       co2Kg / 0.21,
		FlightsAvoided:     co2Kg / 255,
		HomesPoweredDays:   co2Kg / 18.3,
		SmartphonesCharged: co2Kg / 0.008,
	}
}
