package domain

import "context"

// PortfolioRepository defines the interface for portfolio persistence operations
type PortfolioRepository interface {
	// Get retrieves the portfolio of owner.
	// Returns ErrPortfolioNotFound if owner has none.
	// Inside Store.Atomic the owner's portfolio stays locked until the transaction ends.
	Get(ctx context.Context, owner Principal) (*Portfolio, error)

	// Create stores a new portfolio.
	// Returns ErrDuplicatePortfolio if owner already has one.
	Create(ctx context.Context, p *Portfolio) error

	// Update overwrites an existing portfolio
	Update(ctx context.Context, p *Portfolio) error

	// ListAutoRebalance returns the owners whose auto-rebalance flag is set
	ListAutoRebalance(ctx context.Context) ([]Principal, error)
}

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// Get retrieves one asset of owner.
	// Returns ErrAssetNotFound if absent.
	Get(ctx context.Context, owner Principal, id AssetID) (*Asset, error)

	// Create stores a new asset.
	// Returns ErrAssetExists if (owner, id) is taken.
	Create(ctx context.Context, a *Asset) error

	// Update overwrites an existing asset
	Update(ctx context.Context, a *Asset) error

	// ListByOwner returns all assets of owner in insertion order
	ListByOwner(ctx context.Context, owner Principal) ([]*Asset, error)
}

// PriceRepository defines the interface for price persistence operations
type PriceRepository interface {
	// Get retrieves the price record of an asset.
	// Returns ErrPriceNotFound if none was ever published.
	Get(ctx context.Context, id AssetID) (*PriceRecord, error)

	// Upsert creates or overwrites the price record of an asset
	Upsert(ctx context.Context, r *PriceRecord) error

	// Snapshot reads the prices of ids in a single consistent read.
	// Assets without a price are absent from the result.
	Snapshot(ctx context.Context, ids []AssetID) (PriceSnapshot, error)
}

// Repositories groups the repositories bound to one unit of work
type Repositories struct {
	Portfolios PortfolioRepository
	Assets     AssetRepository
	Prices     PriceRepository
}

// TxFunc is the body of a unit of work
type TxFunc func(ctx context.Context, repos Repositories) error

// Store runs operations as atomic units of work over all repositories
type Store interface {
	// Atomic runs fn in a read-write transaction.
	// Changes are committed only if fn returns nil; otherwise nothing is persisted.
	Atomic(ctx context.Context, fn TxFunc) error

	// View runs fn in a read-only transaction
	View(ctx context.Context, fn TxFunc) error
}
