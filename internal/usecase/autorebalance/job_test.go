package autorebalance

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/rebalancer-backend/internal/adapter/repository/memory"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/rebalance"
)

type holding struct {
	id     domain.AssetID
	amount uint64
}

// seed creates a 50/50 portfolio for owner with every asset priced at 10
func seed(t *testing.T, store domain.Store, owner domain.Principal, auto bool, holdings ...holding) {
	t.Helper()
	err := store.Atomic(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		p, err := domain.NewPortfolio(owner, 500)
		if err != nil {
			return err
		}
		p.AutoRebalanceEnabled = auto
		if err := repos.Portfolios.Create(ctx, p); err != nil {
			return err
		}
		for _, h := range holdings {
			a := &domain.Asset{Owner: owner, ID: h.id, Name: "asset", CurrentAmount: h.amount, TargetAllocationBps: 5000}
			if err := repos.Assets.Create(ctx, a); err != nil {
				return err
			}
			if err := repos.Prices.Upsert(ctx, &domain.PriceRecord{AssetID: h.id, Price: 10}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func amounts(t *testing.T, store domain.Store, owner domain.Principal) []uint64 {
	t.Helper()
	var out []uint64
	err := store.View(context.Background(), func(ctx context.Context, repos domain.Repositories) error {
		assets, err := repos.Assets.ListByOwner(ctx, owner)
		for _, a := range assets {
			out = append(out, a.CurrentAmount)
		}
		return err
	})
	require.NoError(t, err)
	return out
}

// failingAssets fails every asset update for one asset id
type failingAssets struct {
	domain.AssetRepository
	failOn domain.AssetID
}

func (f failingAssets) Update(ctx context.Context, a *domain.Asset) error {
	if a.ID == f.failOn {
		return errors.New("write failed")
	}
	return f.AssetRepository.Update(ctx, a)
}

type faultyStore struct {
	*memory.Store
	failOn domain.AssetID
}

func (s faultyStore) Atomic(ctx context.Context, fn domain.TxFunc) error {
	return s.Store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		repos.Assets = failingAssets{AssetRepository: repos.Assets, failOn: s.failOn}
		return fn(ctx, repos)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	seed(t, mem, "alice", true, holding{1, 300}, holding{2, 100})
	seed(t, mem, "bob", true, holding{3, 100}, holding{4, 100})
	seed(t, mem, "carol", false, holding{5, 300}, holding{6, 100})
	seed(t, mem, "dave", true, holding{8, 300}, holding{9, 100})

	store := faultyStore{Store: mem, failOn: 9}
	job := NewJob(store, rebalance.NewEngine(store, zerolog.Nop()), zerolog.Nop())

	report, err := job.Sweep(ctx)

	assert.Equal(t, Report{Checked: 3, Rebalanced: 1, Failed: 1}, report)
	require.Error(t, err)
	assert.ErrorContains(t, err, "owner dave")
	assert.ErrorContains(t, err, "write failed")

	assert.Equal(t, []uint64{200, 200}, amounts(t, mem, "alice"), "drifted opted-in portfolio is rebalanced")
	assert.Equal(t, []uint64{100, 100}, amounts(t, mem, "bob"), "balanced portfolio is untouched")
	assert.Equal(t, []uint64{300, 100}, amounts(t, mem, "carol"), "opted-out portfolio is untouched")
	assert.Equal(t, []uint64{300, 100}, amounts(t, mem, "dave"), "failed rebalance leaves no trace")
}

func TestSweep_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seed(t, store, "alice", true, holding{1, 300}, holding{2, 100})
	job := NewJob(store, rebalance.NewEngine(store, zerolog.Nop()), zerolog.Nop())

	report, err := job.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rebalanced)

	report, err = job.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1}, report)
}

func TestSweep_UnpricedPortfolioIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	err := store.Atomic(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := domain.NewPortfolio("erin", 500)
		if err != nil {
			return err
		}
		p.AutoRebalanceEnabled = true
		if err := repos.Portfolios.Create(ctx, p); err != nil {
			return err
		}
		return repos.Assets.Create(ctx, &domain.Asset{Owner: "erin", ID: 1, Name: "asset", CurrentAmount: 100, TargetAllocationBps: 3000})
	})
	require.NoError(t, err)
	job := NewJob(store, rebalance.NewEngine(store, zerolog.Nop()), zerolog.Nop())

	for i := 0; i < 3; i++ {
		report, err := job.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, Report{Checked: 1}, report)
	}
	assert.Equal(t, []uint64{100}, amounts(t, store, "erin"))
}

func TestSweep_NoPortfolios(t *testing.T) {
	store := memory.NewStore()
	job := NewJob(store, rebalance.NewEngine(store, zerolog.Nop()), zerolog.Nop())

	assert.Equal(t, "auto_rebalance", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

func TestSweep_CanceledContext(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "alice", true, holding{1, 300}, holding{2, 100})
	job := NewJob(store, rebalance.NewEngine(store, zerolog.Nop()), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := job.Sweep(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{300, 100}, amounts(t, store, "alice"))
}
