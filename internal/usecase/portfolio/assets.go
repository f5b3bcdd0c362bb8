package portfolio

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/allocation"
)

// AddAssetInput represents the input for adding an asset to a portfolio
type AddAssetInput struct {
	AssetID       domain.AssetID
	AllocationBps domain.BasisPoints
	Amount        uint64
	Name          string
}

// AssetService is the registry of assets held inside portfolios
type AssetService struct {
	Store domain.Store

	log zerolog.Logger
}

// NewAssetService creates a new AssetService instance
func NewAssetService(store domain.Store, log zerolog.Logger) *AssetService {
	return &AssetService{
		Store: store,
		log:   log.With().Str("service", "assets").Logger(),
	}
}

// AddAsset adds a holding to owner's portfolio.
// Checks in order: ErrPortfolioNotFound, ErrInvalidAllocation, ErrAssetExists.
func (s *AssetService) AddAsset(ctx context.Context, owner domain.Principal, input AddAssetInput) error {
	asset := &domain.Asset{
		Owner:               owner,
		ID:                  input.AssetID,
		Name:                input.Name,
		CurrentAmount:       input.Amount,
		TargetAllocationBps: input.AllocationBps,
	}

	err := s.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		// Locks the owner for the rest of the unit of work
		if _, err := repos.Portfolios.Get(ctx, owner); err != nil {
			return err
		}
		if err := asset.Validate(); err != nil {
			return err
		}
		return repos.Assets.Create(ctx, asset)
	})
	if err != nil {
		s.log.Debug().Err(err).Str("owner", owner.String()).Uint64("asset_id", uint64(input.AssetID)).Msg("Asset rejected")
		return err
	}

	s.log.Info().
		Str("owner", owner.String()).
		Uint64("asset_id", uint64(input.AssetID)).
		Str("name", input.Name).
		Uint32("target_bps", uint32(input.AllocationBps)).
		Msg("Asset added")
	return nil
}

// GetAsset returns one asset of owner with its allocation recomputed at current prices,
// or nil if owner does not hold it
func (s *AssetService) GetAsset(ctx context.Context, owner domain.Principal, id domain.AssetID) (*domain.Asset, error) {
	var result *domain.Asset
	err := s.Store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Assets.Get(ctx, owner, id); err != nil {
			if errors.Is(err, domain.ErrAssetNotFound) {
				return nil
			}
			return err
		}

		// The allocation depends on the whole portfolio, so value all of it
		valuation, err := allocation.Load(ctx, repos, owner)
		if err != nil {
			return err
		}
		for _, a := range valuation.Assets {
			if a.ID == id {
				result = a
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCurrentAllocations reports every asset of owner in insertion order with fresh allocations.
// An owner without a portfolio or without assets gets domain.PlaceholderAllocations.
func (s *AssetService) GetCurrentAllocations(ctx context.Context, owner domain.Principal) ([]domain.AllocationEntry, error) {
	var entries []domain.AllocationEntry
	err := s.Store.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if _, err := repos.Portfolios.Get(ctx, owner); err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return nil
			}
			return err
		}

		valuation, err := allocation.Load(ctx, repos, owner)
		if err != nil {
			return err
		}
		entries = valuation.Entries(valuation.Assets)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return domain.PlaceholderAllocations(), nil
	}
	return entries, nil
}
