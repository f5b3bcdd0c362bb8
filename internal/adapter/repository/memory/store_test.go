package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/rebalance"
)

func seedPortfolio(t *testing.T, s *Store, owner domain.Principal) {
	t.Helper()
	err := s.Atomic(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		p, err := domain.NewPortfolio(owner, 500)
		if err != nil {
			return err
		}
		return repos.Portfolios.Create(ctx, p)
	})
	require.NoError(t, err)
}

func TestStore_PortfolioLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedPortfolio(t, s, "user1")

	err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := domain.NewPortfolio("user1", 100)
		require.NoError(t, err)
		return repos.Portfolios.Create(ctx, p)
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePortfolio)

	err = s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, "user1")
		if err != nil {
			return err
		}
		p.AutoRebalanceEnabled = true
		p.TotalValue = decimal.NewFromInt(42)
		return repos.Portfolios.Update(ctx, p)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.Get(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, p.AutoRebalanceEnabled)
		assert.True(t, p.TotalValue.Equal(decimal.NewFromInt(42)))
		assert.Equal(t, domain.BasisPoints(500), p.RebalanceThresholdBps)

		_, err = repos.Portfolios.Get(ctx, "user2")
		assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)

		owners, err := repos.Portfolios.ListAutoRebalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Principal{"user1"}, owners)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_FailedAtomicLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedPortfolio(t, s, "user1")

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		require.NoError(t, repos.Assets.Create(ctx, &domain.Asset{Owner: "user1", ID: 1, Name: "Bitcoin", CurrentAmount: 100}))
		require.NoError(t, repos.Prices.Upsert(ctx, &domain.PriceRecord{AssetID: 1, Price: 50000}))

		// Staged writes are visible inside the transaction
		assets, err := repos.Assets.ListByOwner(ctx, "user1")
		require.NoError(t, err)
		assert.Len(t, assets, 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		assets, err := repos.Assets.ListByOwner(ctx, "user1")
		require.NoError(t, err)
		assert.Empty(t, assets)

		_, err = repos.Prices.Get(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrPriceNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_AssetsKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedPortfolio(t, s, "user1")

	for _, id := range []domain.AssetID{7, 3, 5} {
		id := id
		err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
			return repos.Assets.Create(ctx, &domain.Asset{Owner: "user1", ID: id})
		})
		require.NoError(t, err)
	}

	err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		assert.ErrorIs(t, repos.Assets.Create(ctx, &domain.Asset{Owner: "user1", ID: 3}), domain.ErrAssetExists)
		// Same id under another owner is a different asset
		return repos.Assets.Create(ctx, &domain.Asset{Owner: "user2", ID: 3})
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		assets, err := repos.Assets.ListByOwner(ctx, "user1")
		require.NoError(t, err)
		ids := make([]domain.AssetID, 0, len(assets))
		for _, a := range assets {
			ids = append(ids, a.ID)
		}
		assert.Equal(t, []domain.AssetID{7, 3, 5}, ids)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ViewRejectsWrites(t *testing.T) {
	s := NewStore()
	err := s.View(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		return repos.Prices.Upsert(ctx, &domain.PriceRecord{AssetID: 1, Price: 1})
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestStore_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		return repos.Prices.Upsert(ctx, &domain.PriceRecord{AssetID: 1, Price: 50000, LastUpdated: now})
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		snapshot, err := repos.Prices.Snapshot(ctx, []domain.AssetID{1, 2})
		require.NoError(t, err)
		assert.Equal(t, domain.PriceSnapshot{1: 50000}, snapshot)

		rec, err := repos.Prices.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, now, rec.LastUpdated)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ConcurrentRebalanceRunsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedPortfolio(t, s, "user1")
	err := s.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		for _, a := range []*domain.Asset{
			{Owner: "user1", ID: 1, Name: "A", CurrentAmount: 300, TargetAllocationBps: 5000},
			{Owner: "user1", ID: 2, Name: "B", CurrentAmount: 100, TargetAllocationBps: 5000},
		} {
			if err := repos.Assets.Create(ctx, a); err != nil {
				return err
			}
			if err := repos.Prices.Upsert(ctx, &domain.PriceRecord{AssetID: a.ID, Price: 10}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	engine := rebalance.NewEngine(s, zerolog.Nop())

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.ExecuteRebalance(ctx, "user1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrRebalanceNotNeeded)
	}
	assert.Equal(t, 1, succeeded)

	err = s.View(ctx, func(ctx context.Context, repos domain.Repositories) error {
		assets, err := repos.Assets.ListByOwner(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, uint64(200), assets[0].CurrentAmount)
		assert.Equal(t, uint64(200), assets[1].CurrentAmount)
		return nil
	})
	require.NoError(t, err)
}
