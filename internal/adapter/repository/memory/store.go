// Package memory provides an in-process implementation of domain.Store.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

type assetKey struct {
	owner domain.Principal
	id    domain.AssetID
}

// Store keeps portfolios, assets and prices in maps guarded by a single lock.
// Every unit of work holds the lock for its whole duration, so operations are
// serialized and each sees one consistent state.
type Store struct {
	mu         sync.RWMutex
	portfolios map[domain.Principal]domain.Portfolio
	assets     map[assetKey]domain.Asset
	order      map[domain.Principal][]domain.AssetID
	prices     map[domain.AssetID]domain.PriceRecord
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		portfolios: make(map[domain.Principal]domain.Portfolio),
		assets:     make(map[assetKey]domain.Asset),
		order:      make(map[domain.Principal][]domain.AssetID),
		prices:     make(map[domain.AssetID]domain.PriceRecord),
	}
}

// Atomic runs fn against a staging area that is merged into the store only when fn succeeds
func (s *Store) Atomic(ctx context.Context, fn domain.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTx(s, true)
	if err := fn(ctx, t.repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

// View runs fn with read access only
func (s *Store) View(ctx context.Context, fn domain.TxFunc) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(ctx, newTx(s, false).repositories())
}

// tx overlays staged writes on top of the committed maps
type tx struct {
	s        *Store
	writable bool

	portfolios map[domain.Principal]domain.Portfolio
	assets     map[assetKey]domain.Asset
	appended   map[domain.Principal][]domain.AssetID
	prices     map[domain.AssetID]domain.PriceRecord
}

func newTx(s *Store, writable bool) *tx {
	return &tx{
		s:          s,
		writable:   writable,
		portfolios: make(map[domain.Principal]domain.Portfolio),
		assets:     make(map[assetKey]domain.Asset),
		appended:   make(map[domain.Principal][]domain.AssetID),
		prices:     make(map[domain.AssetID]domain.PriceRecord),
	}
}

func (t *tx) repositories() domain.Repositories {
	return domain.Repositories{
		Portfolios: &portfolioRepository{tx: t},
		Assets:     &assetRepository{tx: t},
		Prices:     &priceRepository{tx: t},
	}
}

func (t *tx) commit() {
	for owner, p := range t.portfolios {
		t.s.portfolios[owner] = p
	}
	for key, a := range t.assets {
		t.s.assets[key] = a
	}
	for owner, ids := range t.appended {
		t.s.order[owner] = append(t.s.order[owner], ids...)
	}
	for id, r := range t.prices {
		t.s.prices[id] = r
	}
}

func (t *tx) portfolio(owner domain.Principal) (domain.Portfolio, bool) {
	if p, ok := t.portfolios[owner]; ok {
		return p, true
	}
	p, ok := t.s.portfolios[owner]
	return p, ok
}

func (t *tx) asset(key assetKey) (domain.Asset, bool) {
	if a, ok := t.assets[key]; ok {
		return a, true
	}
	a, ok := t.s.assets[key]
	return a, ok
}

func (t *tx) price(id domain.AssetID) (domain.PriceRecord, bool) {
	if r, ok := t.prices[id]; ok {
		return r, true
	}
	r, ok := t.s.prices[id]
	return r, ok
}

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	tx *tx
}

// Get retrieves the portfolio of owner
func (r *portfolioRepository) Get(ctx context.Context, owner domain.Principal) (*domain.Portfolio, error) {
	p, ok := r.tx.portfolio(owner)
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	return &p, nil
}

// Create stores a new portfolio
func (r *portfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	if !r.tx.writable {
		return errReadOnly
	}
	if _, ok := r.tx.portfolio(p.Owner); ok {
		return domain.ErrDuplicatePortfolio
	}
	r.tx.portfolios[p.Owner] = *p
	return nil
}

// Update overwrites an existing portfolio
func (r *portfolioRepository) Update(ctx context.Context, p *domain.Portfolio) error {
	if !r.tx.writable {
		return errReadOnly
	}
	if _, ok := r.tx.portfolio(p.Owner); !ok {
		return domain.ErrPortfolioNotFound
	}
	r.tx.portfolios[p.Owner] = *p
	return nil
}

// ListAutoRebalance returns owners with auto-rebalance enabled, sorted for determinism
func (r *portfolioRepository) ListAutoRebalance(ctx context.Context) ([]domain.Principal, error) {
	seen := make(map[domain.Principal]bool)
	owners := make([]domain.Principal, 0)
	collect := func(p domain.Portfolio) {
		if seen[p.Owner] {
			return
		}
		seen[p.Owner] = true
		if p.AutoRebalanceEnabled {
			owners = append(owners, p.Owner)
		}
	}
	// Staged entries shadow committed ones
	for _, p := range r.tx.portfolios {
		collect(p)
	}
	for _, p := range r.tx.s.portfolios {
		collect(p)
	}

	sort.Slice(owners, func(i, j int) bool {
		return owners[i] < owners[j]
	})
	return owners, nil
}

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	tx *tx
}

// Get retrieves one asset of owner
func (r *assetRepository) Get(ctx context.Context, owner domain.Principal, id domain.AssetID) (*domain.Asset, error) {
	a, ok := r.tx.asset(assetKey{owner: owner, id: id})
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return &a, nil
}

// Create stores a new asset and appends it to the owner's ordering
func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	if !r.tx.writable {
		return errReadOnly
	}
	key := assetKey{owner: a.Owner, id: a.ID}
	if _, ok := r.tx.asset(key); ok {
		return domain.ErrAssetExists
	}
	r.tx.assets[key] = *a
	r.tx.appended[a.Owner] = append(r.tx.appended[a.Owner], a.ID)
	return nil
}

// Update overwrites an existing asset
func (r *assetRepository) Update(ctx context.Context, a *domain.Asset) error {
	if !r.tx.writable {
		return errReadOnly
	}
	key := assetKey{owner: a.Owner, id: a.ID}
	if _, ok := r.tx.asset(key); !ok {
		return domain.ErrAssetNotFound
	}
	r.tx.assets[key] = *a
	return nil
}

// ListByOwner returns all assets of owner in insertion order
func (r *assetRepository) ListByOwner(ctx context.Context, owner domain.Principal) ([]*domain.Asset, error) {
	ids := append(append([]domain.AssetID{}, r.tx.s.order[owner]...), r.tx.appended[owner]...)

	assets := make([]*domain.Asset, 0, len(ids))
	for _, id := range ids {
		a, ok := r.tx.asset(assetKey{owner: owner, id: id})
		if !ok {
			continue
		}
		assets = append(assets, &a)
	}
	return assets, nil
}

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	tx *tx
}

// Get retrieves the price record of an asset
func (r *priceRepository) Get(ctx context.Context, id domain.AssetID) (*domain.PriceRecord, error) {
	rec, ok := r.tx.price(id)
	if !ok {
		return nil, domain.ErrPriceNotFound
	}
	return &rec, nil
}

// Upsert creates or overwrites the price record of an asset
func (r *priceRepository) Upsert(ctx context.Context, rec *domain.PriceRecord) error {
	if !r.tx.writable {
		return errReadOnly
	}
	r.tx.prices[rec.AssetID] = *rec
	return nil
}

// Snapshot reads the prices of ids; the store lock makes the read consistent
func (r *priceRepository) Snapshot(ctx context.Context, ids []domain.AssetID) (domain.PriceSnapshot, error) {
	snapshot := make(domain.PriceSnapshot, len(ids))
	for _, id := range ids {
		if rec, ok := r.tx.price(id); ok {
			snapshot[id] = rec.Price
		}
	}
	return snapshot, nil
}
