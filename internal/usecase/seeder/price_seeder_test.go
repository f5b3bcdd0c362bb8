package seeder

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/rebalancer-backend/internal/adapter/repository/memory"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/authz"
	"github.com/simaogato/rebalancer-backend/internal/usecase/pricing"
)

func newOracle() *pricing.Oracle {
	return pricing.NewOracle(memory.NewStore(), authz.NewGuard("oracle"), zerolog.Nop())
}

func TestPriceSeeder_Seed_PricesMissing(t *testing.T) {
	ctx := context.Background()
	oracle := newOracle()
	seeder := NewPriceSeeder(oracle, "oracle", []domain.PriceRecord{
		{AssetID: 1, Price: 50000},
		{AssetID: 2, Price: 3000},
	}, zerolog.Nop())

	err := seeder.Seed(ctx)

	require.NoError(t, err)
	for id, want := range map[domain.AssetID]uint64{1: 50000, 2: 3000} {
		rec, err := oracle.GetAssetPrice(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, want, rec.Price)
		assert.False(t, rec.LastUpdated.IsZero())
	}
}

func TestPriceSeeder_Seed_PricesExist(t *testing.T) {
	ctx := context.Background()
	oracle := newOracle()
	require.NoError(t, oracle.UpdateAssetPrice(ctx, "oracle", 1, 61000))

	seeder := NewPriceSeeder(oracle, "oracle", []domain.PriceRecord{
		{AssetID: 1, Price: 50000},
		{AssetID: 2, Price: 3000},
	}, zerolog.Nop())

	require.NoError(t, seeder.Seed(ctx))

	rec, err := oracle.GetAssetPrice(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(61000), rec.Price, "published price must survive a restart")

	rec, err = oracle.GetAssetPrice(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), rec.Price)
}

func TestPriceSeeder_Seed_Errors(t *testing.T) {
	tests := []struct {
		name      string
		authority domain.Principal
		prices    []domain.PriceRecord
		wantErr   error
	}{
		{
			name:      "seeding as someone other than the authority",
			authority: "intruder",
			prices:    []domain.PriceRecord{{AssetID: 1, Price: 50000}},
			wantErr:   domain.ErrNotAuthorized,
		},
		{
			name:      "zero price",
			authority: "oracle",
			prices:    []domain.PriceRecord{{AssetID: 1, Price: 0}},
			wantErr:   domain.ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seeder := NewPriceSeeder(newOracle(), tt.authority, tt.prices, zerolog.Nop())

			err := seeder.Seed(context.Background())

			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorContains(t, err, "failed to seed price of asset 1")
		})
	}
}

func TestPriceSeeder_Seed_Nothing(t *testing.T) {
	seeder := NewPriceSeeder(newOracle(), "oracle", nil, zerolog.Nop())

	assert.NoError(t, seeder.Seed(context.Background()))
}
