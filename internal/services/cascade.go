package services

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"surplus-redistribution-service/internal/carbon"
	"surplus-redistribution-service/internal/domain"
	"surplus-redistribution-service/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxRedistributionKm bounds peer-retailer transfers.
	DefaultMaxRedistributionKm = 50.0

	tier1Share = 0.3
	tier1MinKg = 2.0
	tier2Share = 0.8
	tier2MinKg = 1.0

	// Remainders below this are float residue, not food.
	residueKg = 1e-9
)

// CascadeAllocator splits surplus across the three disposition tiers.
// It is a greedy heuristic: items are handled in the order given and each
// item's surplus is exhausted tier by tier.
type CascadeAllocator struct {
	distance   ports.DistanceProvider
	accountant *carbon.Accountant
	maxKm      float64
	now        func() time.Time

	retailers []domain.Location
	foodBanks []domain.Location
	compost   []domain.Location
}

func NewCascadeAllocator(
	registry *domain.Registry,
	distance ports.DistanceProvider,
	accountant *carbon.Accountant,
	maxRedistributionKm float64,
) *CascadeAllocator {
	if maxRedistributionKm <= 0 {
		maxRedistributionKm = DefaultMaxRedistributionKm
	}
	if accountant == nil {
		accountant = carbon.Default()
	}

	return &CascadeAllocator{
		distance:   distance,
		accountant: accountant,
		maxKm:      maxRedistributionKm,
		now:        time.Now,
		retailers:  registry.OfKind(domain.KindRetailer),
		foodBanks:  registry.OfKind(domain.KindFoodBank),
		compost:    registry.OfKind(domain.KindCompostFacility),
	}
}

// CascadeResult holds the actions produced by a run and their running totals.
type CascadeResult struct {
	Actions        []domain.CascadeAction
	Summary        *domain.RunSummary
	ItemsProcessed int
}

type candidate struct {
	loc domain.Location
	km  float64
}

// Allocate produces cascade actions for items in the given order.
//
// On an unexpected failure (malformed coordinates) it stops and returns the
// actions produced so far together with a *StageError.
func (c *CascadeAllocator) Allocate(items []domain.SurplusItem) (*CascadeResult, error) {
	res := &CascadeResult{
		Actions: make([]domain.CascadeAction, 0, len(items)),
		Summary: domain.NewRunSummary(),
	}

	for _, item := range items {
		if err := c.allocateItem(item, res); err != nil {
			return res, &StageError{
				Stage:           StageAllocate,
				ItemsProcessed:  res.ItemsProcessed,
				ActionsProduced: len(res.Actions),
				Err:             err,
			}
		}
		res.ItemsProcessed++
	}

	return res, nil
}

func (c *CascadeAllocator) allocateItem(item domain.SurplusItem, res *CascadeResult) error {
	remaining := item.SurplusQty
	if remaining <= 0 {
		return nil
	}

	src := item.Source
	if err := src.Coords.Validate(); err != nil {
		return fmt.Errorf("allocate item: store %d product %d: %w", src.ID, item.ProductID, err)
	}

	// Tier 1: peer retailers in the same city, only while shelf life remains.
	if !item.ExpiringSoon() {
		peers, err := c.rank(src, domain.InCity(c.retailers, src.City))
		if err != nil {
			return err
		}

		for _, p := range peers {
			if p.km > c.maxKm {
				break
			}

			transfer := math.Min(remaining*tier1Share, remaining)
			if transfer < tier1MinKg {
				break
			}

			c.emit(res, item, p, domain.TierRetailer, transfer,
				c.accountant.RedistributionCO2(item.Category, transfer, p.km),
				carbon.RedistributionSaleValue(transfer, item.UnitPrice))
			remaining -= transfer

			if remaining < tier1MinKg {
				break
			}
		}
	}

	// Tier 2: a single food bank, preferring the same city.
	if remaining > residueKg && item.DaysUntilExpiry >= 1 {
		banks := domain.InCity(c.foodBanks, src.City)
		if len(banks) == 0 {
			banks = c.foodBanks
		}

		ranked, err := c.rank(src, banks)
		if err != nil {
			return err
		}

		if len(ranked) > 0 {
			bank := ranked[0]
			transfer := math.Min(remaining*tier2Share, remaining)
			if transfer >= tier2MinKg {
				c.emit(res, item, bank, domain.TierFoodBank, transfer,
					c.accountant.RedistributionCO2(item.Category, transfer, bank.km),
					carbon.WriteOffAvoided(transfer, item.UnitCost))
				remaining -= transfer
			}
		}
	}

	// Tier 3: everything left goes to the nearest compost facility.
	if remaining > residueKg {
		sites := domain.InCity(c.compost, src.City)
		if len(sites) == 0 {
			sites = c.compost
		}

		ranked, err := c.rank(src, sites)
		if err != nil {
			return err
		}

		if len(ranked) == 0 {
			res.Summary.UnresolvedKg += remaining
			res.Summary.Warnings = append(res.Summary.Warnings, fmt.Sprintf(
				"no compost facility for store %d product %d: %.1f kg unresolved",
				src.ID, item.ProductID, remaining,
			))
			slog.Warn("surplus left unresolved",
				"store_id", src.ID, "product_id", item.ProductID, "kg", remaining)
			return nil
		}

		c.emit(res, item, ranked[0], domain.TierCompost, remaining,
			carbon.CompostCO2(remaining), decimal.Zero)
	}

	return nil
}

// rank orders candidates by distance from src, excluding src itself.
// Ties are broken by location id.
func (c *CascadeAllocator) rank(src domain.Location, locs []domain.Location) ([]candidate, error) {
	out := make([]candidate, 0, len(locs))
	for _, l := range locs {
		if l.ID == src.ID {
			continue
		}
		if err := l.Coords.Validate(); err != nil {
			return nil, fmt.Errorf("rank candidates: location %d: %w", l.ID, err)
		}
		out = append(out, candidate{loc: l, km: c.distance.DistanceKm(src.Coords, l.Coords)})
	}

	slices.SortFunc(out, func(a, b candidate) int {
		if d := cmp.Compare(a.km, b.km); d != 0 {
			return d
		}
		return cmp.Compare(a.loc.ID, b.loc.ID)
	})

	return out, nil
}

func (c *CascadeAllocator) emit(
	res *CascadeResult,
	item domain.SurplusItem,
	dst candidate,
	tier domain.Tier,
	qty float64,
	carbonKg float64,
	cost decimal.Decimal,
) {
	a := domain.CascadeAction{
		CreatedAt:       c.now(),
		SourceID:        item.Source.ID,
		DestinationID:   dst.loc.ID,
		ProductID:       item.ProductID,
		ProductName:     item.ProductName,
		SourceName:      item.Source.Name,
		DestinationName: dst.loc.Name,
		QuantityKg:      qty,
		Tier:            tier,
		CarbonSavedKg:   carbonKg,
		CostSaved:       cost,
		DistanceKm:      dst.km,
		Status:          domain.StatusPlanned,
	}

	res.Actions = append(res.Actions, a)
	res.Summary.Add(a)
}
