package allocation

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// bpsScale converts a fraction into basis points
var bpsScale = decimal.NewFromInt(int64(domain.MaxBasisPoints))

// Result is the valuation of an owner's assets at one price snapshot
type Result struct {
	// TotalValue is Σ amount × price over all assets (assets without a price count as 0)
	TotalValue decimal.Decimal

	// Allocations holds the current allocation of each asset, indexed like the input slice
	Allocations []domain.BasisPoints
}

// Calculate computes the total value of assets and each asset's current allocation.
// Logic:
//  1. value_i = amount_i × price_i (missing price = 0)
//  2. total = Σ value_i
//  3. allocation_i = floor(value_i × 10000 / total), or 0 when total is 0
//
// Calculate is pure: it neither mutates assets nor reads any state beyond its arguments.
func Calculate(assets []*domain.Asset, prices domain.PriceSnapshot) Result {
	values := make([]decimal.Decimal, len(assets))
	total := decimal.Zero
	for i, a := range assets {
		values[i] = Quantity(a.CurrentAmount).Mul(Quantity(prices.PriceOf(a.ID)))
		total = total.Add(values[i])
	}

	allocations := make([]domain.BasisPoints, len(assets))
	if total.IsPositive() {
		for i, v := range values {
			allocations[i] = domain.BasisPoints(FloorDiv(v.Mul(bpsScale), total).IntPart())
		}
	}

	return Result{
		TotalValue:  total,
		Allocations: allocations,
	}
}

// Apply writes the computed allocations back onto assets.
// assets must be the slice the Result was calculated from.
func (r Result) Apply(assets []*domain.Asset) {
	for i, a := range assets {
		a.CurrentAllocationBps = r.Allocations[i]
	}
}

// Entries builds the allocation report rows for assets
func (r Result) Entries(assets []*domain.Asset) []domain.AllocationEntry {
	entries := make([]domain.AllocationEntry, 0, len(assets))
	for i, a := range assets {
		entries = append(entries, domain.AllocationEntry{
			AssetID:              a.ID,
			Name:                 a.Name,
			CurrentAllocationBps: r.Allocations[i],
			TargetAllocationBps:  a.TargetAllocationBps,
			CurrentAmount:        a.CurrentAmount,
		})
	}
	return entries
}

// Quantity converts an unsigned amount or price into an exact decimal
func Quantity(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// FloorDiv returns floor(num / den) for non-negative num and positive den
func FloorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, _ := num.QuoRem(den, 0)
	return q
}
