package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/authz"
)

// Oracle holds the latest price of every asset.
// Prices are global and may only be published by the price authority.
type Oracle struct {
	Store domain.Store
	Guard *authz.Guard
	Now   func() time.Time

	log zerolog.Logger
}

// NewOracle creates a new Oracle instance
func NewOracle(store domain.Store, guard *authz.Guard, log zerolog.Logger) *Oracle {
	return &Oracle{
		Store: store,
		Guard: guard,
		Now:   time.Now,
		log:   log.With().Str("service", "pricing").Logger(),
	}
}

// UpdateAssetPrice publishes a new price for an asset on behalf of caller.
// Logic: authorize, validate, then upsert the record with LastUpdated = now
// (does NOT touch any portfolio; allocations are recomputed on read)
func (o *Oracle) UpdateAssetPrice(ctx context.Context, caller domain.Principal, id domain.AssetID, price uint64) error {
	if err := o.Guard.Authorize(caller, authz.ActionUpdatePrice); err != nil {
		o.log.Debug().Str("caller", caller.String()).Uint64("asset_id", uint64(id)).Msg("Price update rejected")
		return err
	}

	record := &domain.PriceRecord{
		AssetID:     id,
		Price:       price,
		LastUpdated: o.Now().UTC(),
	}
	if err := record.Validate(); err != nil {
		return err
	}

	err := o.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Prices.Upsert(ctx, record)
	})
	if err != nil {
		return err
	}

	o.log.Info().
		Uint64("asset_id", uint64(id)).
		Uint64("price", price).
		Msg("Asset price updated")
	return nil
}

// GetAssetPrice returns the price record of an asset, or nil if none was ever published
func (o *Oracle) GetAssetPrice(ctx context.Context, id domain.AssetID) (*domain.PriceRecord, error) {
	var record *domain.PriceRecord
	err := o.Store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		r, err := repos.Prices.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrPriceNotFound) {
				return nil
			}
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
