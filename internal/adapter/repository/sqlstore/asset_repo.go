package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	repo
}

const assetColumns = `owner, asset_id, name, current_amount, target_allocation_bps, current_allocation_bps`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var owner, idStr, amountStr string
	var target, current uint32

	if err := row.Scan(&owner, &idStr, &a.Name, &amountStr, &target, &current); err != nil {
		return nil, err
	}

	id, err := parseUint(idStr, "asset_id")
	if err != nil {
		return nil, err
	}
	amount, err := parseUint(amountStr, "current_amount")
	if err != nil {
		return nil, err
	}

	a.Owner = domain.Principal(owner)
	a.ID = domain.AssetID(id)
	a.CurrentAmount = amount
	a.TargetAllocationBps = domain.BasisPoints(target)
	a.CurrentAllocationBps = domain.BasisPoints(current)
	return &a, nil
}

// Get retrieves one asset of owner
func (r *assetRepository) Get(ctx context.Context, owner domain.Principal, id domain.AssetID) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE owner = ? AND asset_id = ?`

	a, err := scanAsset(r.q.QueryRowContext(ctx, r.dialect.rebind(query), string(owner), formatUint(uint64(id))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// Create inserts a new asset at the end of its owner's list
func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	if err := r.checkWritable(); err != nil {
		return err
	}

	var position int64
	err := r.q.QueryRowContext(ctx, r.dialect.rebind(`SELECT COUNT(*) FROM assets WHERE owner = ?`), string(a.Owner)).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to count assets: %w", err)
	}

	query := `
		INSERT INTO assets (owner, asset_id, position, name, current_amount, target_allocation_bps, current_allocation_bps)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, asset_id) DO NOTHING`

	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		string(a.Owner),
		formatUint(uint64(a.ID)),
		position,
		a.Name,
		formatUint(a.CurrentAmount),
		uint32(a.TargetAllocationBps),
		uint32(a.CurrentAllocationBps),
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAssetExists
	}
	return nil
}

// Update overwrites an existing asset
func (r *assetRepository) Update(ctx context.Context, a *domain.Asset) error {
	if err := r.checkWritable(); err != nil {
		return err
	}

	query := `
		UPDATE assets
		SET name = ?, current_amount = ?, target_allocation_bps = ?, current_allocation_bps = ?
		WHERE owner = ? AND asset_id = ?`

	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		a.Name,
		formatUint(a.CurrentAmount),
		uint32(a.TargetAllocationBps),
		uint32(a.CurrentAllocationBps),
		string(a.Owner),
		formatUint(uint64(a.ID)),
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAssetNotFound
	}
	return nil
}

// ListByOwner returns all assets of owner in insertion order
func (r *assetRepository) ListByOwner(ctx context.Context, owner domain.Principal) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE owner = ? ORDER BY position`

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), string(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}
