package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/rebalancer-backend/internal/adapter/repository/memory"
	"github.com/simaogato/rebalancer-backend/internal/domain"
	"github.com/simaogato/rebalancer-backend/internal/usecase/authz"
)

const authority = domain.Principal("contractOwner")

// MockPriceRepository is a mock implementation of PriceRepository for testing
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) Get(ctx context.Context, id domain.AssetID) (*domain.PriceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceRecord), args.Error(1)
}

func (m *MockPriceRepository) Upsert(ctx context.Context, r *domain.PriceRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockPriceRepository) Snapshot(ctx context.Context, ids []domain.AssetID) (domain.PriceSnapshot, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.PriceSnapshot), args.Error(1)
}

// mockStore runs units of work directly against the mocked repository
type mockStore struct {
	prices *MockPriceRepository
}

func (s *mockStore) Atomic(ctx context.Context, fn domain.TxFunc) error {
	return fn(ctx, domain.Repositories{Prices: s.prices})
}

func (s *mockStore) View(ctx context.Context, fn domain.TxFunc) error {
	return fn(ctx, domain.Repositories{Prices: s.prices})
}

func newMockedOracle() (*Oracle, *MockPriceRepository) {
	repo := new(MockPriceRepository)
	oracle := NewOracle(&mockStore{prices: repo}, authz.NewGuard(authority), zerolog.Nop())
	oracle.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return oracle, repo
}

func TestUpdateAssetPrice_Success(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	repo.On("Upsert", ctx, mock.MatchedBy(func(r *domain.PriceRecord) bool {
		return r.AssetID == 1 &&
			r.Price == 50000 &&
			r.LastUpdated.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	})).Return(nil)

	err := oracle.UpdateAssetPrice(ctx, authority, 1, 50000)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateAssetPrice_NotAuthorized(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	err := oracle.UpdateAssetPrice(ctx, "user1", 1, 50000)

	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	code, _ := domain.CodeOf(err)
	assert.Equal(t, domain.ErrorCode(100), code)
	repo.AssertNotCalled(t, "Upsert")
}

func TestUpdateAssetPrice_ZeroPrice(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	err := oracle.UpdateAssetPrice(ctx, authority, 1, 0)

	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	repo.AssertNotCalled(t, "Upsert")
}

func TestUpdateAssetPrice_StoreFailure(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	repo.On("Upsert", ctx, mock.Anything).Return(errors.New("disk full"))

	err := oracle.UpdateAssetPrice(ctx, authority, 1, 50000)

	assert.EqualError(t, err, "disk full")
}

func TestGetAssetPrice_NotFoundIsAbsent(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	repo.On("Get", ctx, domain.AssetID(9)).Return(nil, domain.ErrPriceNotFound)

	record, err := oracle.GetAssetPrice(ctx, 9)

	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestGetAssetPrice_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	oracle, repo := newMockedOracle()

	repo.On("Get", ctx, domain.AssetID(9)).Return(nil, errors.New("connection reset"))

	record, err := oracle.GetAssetPrice(ctx, 9)

	assert.EqualError(t, err, "connection reset")
	assert.Nil(t, record)
}

func TestOracle_RoundTripWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	oracle := NewOracle(memory.NewStore(), authz.NewGuard(authority), zerolog.Nop())

	require.NoError(t, oracle.UpdateAssetPrice(ctx, authority, 1, 50000))
	require.NoError(t, oracle.UpdateAssetPrice(ctx, authority, 1, 51000))

	record, err := oracle.GetAssetPrice(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, uint64(51000), record.Price)
	assert.False(t, record.LastUpdated.IsZero())
}
