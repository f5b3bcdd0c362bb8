package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	repo
}

// Get retrieves the price record of an asset
func (r *priceRepository) Get(ctx context.Context, id domain.AssetID) (*domain.PriceRecord, error) {
	query := `SELECT price, last_updated FROM asset_prices WHERE asset_id = ?`

	var priceStr string
	var lastUpdated int64
	err := r.q.QueryRowContext(ctx, r.dialect.rebind(query), formatUint(uint64(id))).Scan(&priceStr, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to get price: %w", err)
	}

	price, err := parseUint(priceStr, "price")
	if err != nil {
		return nil, err
	}

	return &domain.PriceRecord{
		AssetID:     id,
		Price:       price,
		LastUpdated: fromMicros(lastUpdated),
	}, nil
}

// Upsert creates or overwrites the price record of an asset
func (r *priceRepository) Upsert(ctx context.Context, rec *domain.PriceRecord) error {
	if err := r.checkWritable(); err != nil {
		return err
	}

	query := `
		INSERT INTO asset_prices (asset_id, price, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT (asset_id) DO UPDATE SET price = excluded.price, last_updated = excluded.last_updated`

	_, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		formatUint(uint64(rec.AssetID)),
		formatUint(rec.Price),
		toMicros(rec.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}
	return nil
}

// Snapshot reads the prices of ids with a single query
func (r *priceRepository) Snapshot(ctx context.Context, ids []domain.AssetID) (domain.PriceSnapshot, error) {
	snapshot := make(domain.PriceSnapshot, len(ids))
	if len(ids) == 0 {
		return snapshot, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = formatUint(uint64(id))
	}

	query := `SELECT asset_id, price FROM asset_prices WHERE asset_id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr, priceStr string
		if err := rows.Scan(&idStr, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		id, err := parseUint(idStr, "asset_id")
		if err != nil {
			return nil, err
		}
		price, err := parseUint(priceStr, "price")
		if err != nil {
			return nil, err
		}
		snapshot[domain.AssetID(id)] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return snapshot, nil
}
