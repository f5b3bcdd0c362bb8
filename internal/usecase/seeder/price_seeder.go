package seeder

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/pricing"
)

// PriceSeeder publishes startup prices for assets that have none yet
type PriceSeeder struct {
	oracle    *pricing.Oracle
	authority domain.Principal
	prices    []domain.PriceRecord

	log zerolog.Logger
}

// NewPriceSeeder creates a new PriceSeeder instance.
// Prices are published on behalf of authority, so the oracle's guard must accept it.
func NewPriceSeeder(oracle *pricing.Oracle, authority domain.Principal, prices []domain.PriceRecord, log zerolog.Logger) *PriceSeeder {
	return &PriceSeeder{
		oracle:    oracle,
		authority: authority,
		prices:    prices,
		log:       log.With().Str("service", "seeder").Logger(),
	}
}

// Seed ensures every configured asset has a price.
// Prices already published are left untouched so a restart never rolls them back.
func (s *PriceSeeder) Seed(ctx context.Context) error {
	seeded := 0
	for _, p := range s.prices {
		existing, err := s.oracle.GetAssetPrice(ctx, p.AssetID)
		if err != nil {
			return fmt.Errorf("failed to read price of asset %d: %w", p.AssetID, err)
		}
		if existing != nil {
			continue
		}

		if err := s.oracle.UpdateAssetPrice(ctx, s.authority, p.AssetID, p.Price); err != nil {
			return fmt.Errorf("failed to seed price of asset %d: %w", p.AssetID, err)
		}
		seeded++
	}

	s.log.Info().Int("seeded", seeded).Int("configured", len(s.prices)).Msg("Price seeding complete")
	return nil
}
