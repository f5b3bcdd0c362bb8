package allocation

import (
	"context"
	"fmt"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// Valuation is an owner's asset set together with the price snapshot it was valued at
type Valuation struct {
	Assets []*domain.Asset
	Prices domain.PriceSnapshot
	Result
}

// Load reads all assets of owner and their prices from one unit of work and values them.
// Prices are read once so the whole valuation sees a single consistent snapshot.
// The returned assets already carry their recomputed CurrentAllocationBps.
func Load(ctx context.Context, repos domain.Repositories, owner domain.Principal) (*Valuation, error) {
	assets, err := repos.Assets.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	ids := make([]domain.AssetID, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}

	prices, err := repos.Prices.Snapshot(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	result := Calculate(assets, prices)
	result.Apply(assets)

	return &Valuation{
		Assets: assets,
		Prices: prices,
		Result: result,
	}, nil
}
