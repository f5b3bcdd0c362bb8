package rebalance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/allocation"
)

var bpsScale = decimal.NewFromInt(int64(domain.MaxBasisPoints))

// Engine decides whether a portfolio has drifted past its threshold and rebalances it
type Engine struct {
	Store domain.Store
	Now   func() time.Time

	log zerolog.Logger
}

// NewEngine creates a new Engine instance
func NewEngine(store domain.Store, log zerolog.Logger) *Engine {
	return &Engine{
		Store: store,
		Now:   time.Now,
		log:   log.With().Str("service", "rebalance").Logger(),
	}
}

// NeedsRebalance reports whether any asset drifted from its target by at least the threshold.
// allocations must be indexed like assets.
func NeedsRebalance(threshold domain.BasisPoints, assets []*domain.Asset, allocations []domain.BasisPoints) bool {
	for i, a := range assets {
		if domain.Drift(allocations[i], a.TargetAllocationBps) >= threshold {
			return true
		}
	}
	return false
}

// needsRebalance applies NeedsRebalance to a loaded valuation.
// A portfolio worth nothing has no allocation to restore, so it never needs one.
func needsRebalance(threshold domain.BasisPoints, v *allocation.Valuation) bool {
	if v.TotalValue.IsZero() {
		return false
	}
	return NeedsRebalance(threshold, v.Assets, v.Allocations)
}

// PlanAmounts computes the holding of each asset that matches its target at current prices:
// amount_i = floor(target_i × total / (10000 × price_i)).
// Assets without a price keep their amount. The result is indexed like assets.
func PlanAmounts(assets []*domain.Asset, prices domain.PriceSnapshot, total decimal.Decimal) ([]uint64, error) {
	amounts := make([]uint64, len(assets))
	for i, a := range assets {
		price := prices.PriceOf(a.ID)
		if price == 0 {
			amounts[i] = a.CurrentAmount
			continue
		}

		num := decimal.NewFromInt(int64(a.TargetAllocationBps)).Mul(total)
		den := bpsScale.Mul(allocation.Quantity(price))
		amount := allocation.FloorDiv(num, den).BigInt()
		if !amount.IsUint64() {
			return nil, fmt.Errorf("rebalanced amount of asset %d overflows: %s", a.ID, amount)
		}
		amounts[i] = amount.Uint64()
	}
	return amounts, nil
}

// CheckRebalanceNeeded reports whether owner's portfolio needs rebalancing at current prices.
// An owner without a portfolio never needs one; only storage failures are returned as errors.
func (e *Engine) CheckRebalanceNeeded(ctx context.Context, owner domain.Principal) (bool, error) {
	var needed bool
	err := e.Store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, owner)
		if err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return nil
			}
			return err
		}

		valuation, err := allocation.Load(ctx, repos, owner)
		if err != nil {
			return err
		}
		needed = needsRebalance(p.RebalanceThresholdBps, valuation)
		return nil
	})
	if err != nil {
		return false, err
	}
	return needed, nil
}

// ExecuteRebalance resets every priced asset of owner to its target allocation.
// Logic:
//  1. Load portfolio (ErrPortfolioNotFound) and value it at one price snapshot
//  2. Refuse with ErrRebalanceNotNeeded unless the portfolio has value and some drift reaches the threshold
//  3. Plan every new amount before writing anything
//  4. Write assets, total value and LastRebalance in the same unit of work
//
// Returns the updated portfolio.
func (e *Engine) ExecuteRebalance(ctx context.Context, owner domain.Principal) (*domain.Portfolio, error) {
	var updated *domain.Portfolio
	err := e.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, owner)
		if err != nil {
			return err
		}

		valuation, err := allocation.Load(ctx, repos, owner)
		if err != nil {
			return err
		}
		if !needsRebalance(p.RebalanceThresholdBps, valuation) {
			return domain.ErrRebalanceNotNeeded
		}

		amounts, err := PlanAmounts(valuation.Assets, valuation.Prices, valuation.TotalValue)
		if err != nil {
			return err
		}
		for i, a := range valuation.Assets {
			a.CurrentAmount = amounts[i]
		}
		result := allocation.Calculate(valuation.Assets, valuation.Prices)
		result.Apply(valuation.Assets)

		for _, a := range valuation.Assets {
			if err := repos.Assets.Update(ctx, a); err != nil {
				return fmt.Errorf("failed to update asset %d: %w", a.ID, err)
			}
		}

		p.TotalValue = result.TotalValue
		p.LastRebalance = e.Now().UTC()
		if err := repos.Portfolios.Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update portfolio: %w", err)
		}

		updated = p
		return nil
	})
	if err != nil {
		e.log.Debug().Err(err).Str("owner", owner.String()).Msg("Rebalance rejected")
		return nil, err
	}

	e.log.Info().
		Str("owner", owner.String()).
		Str("total_value", updated.TotalValue.String()).
		Time("last_rebalance", updated.LastRebalance).
		Msg("Portfolio rebalanced")
	return updated, nil
}
