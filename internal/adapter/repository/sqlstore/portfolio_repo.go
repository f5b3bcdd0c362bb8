package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/rebalancer-backend/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	repo
}

// Get retrieves the portfolio of owner, locking its row inside a write transaction
func (r *portfolioRepository) Get(ctx context.Context, owner domain.Principal) (*domain.Portfolio, error) {
	query := `
		SELECT owner, total_value, rebalance_threshold_bps, auto_rebalance_enabled, last_rebalance
		FROM portfolios
		WHERE owner = ?`
	if r.writable {
		query += r.dialect.lockClause
	}

	var p domain.Portfolio
	var totalStr string
	var threshold uint32
	var lastRebalance int64

	err := r.q.QueryRowContext(ctx, r.dialect.rebind(query), string(owner)).Scan(
		&p.Owner,
		&totalStr,
		&threshold,
		&p.AutoRebalanceEnabled,
		&lastRebalance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_value: %w", err)
	}
	p.TotalValue = total
	p.RebalanceThresholdBps = domain.BasisPoints(threshold)
	p.LastRebalance = fromMicros(lastRebalance)

	return &p, nil
}

// Create inserts a new portfolio
func (r *portfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	if err := r.checkWritable(); err != nil {
		return err
	}

	query := `
		INSERT INTO portfolios (owner, total_value, rebalance_threshold_bps, auto_rebalance_enabled, last_rebalance)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner) DO NOTHING`

	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		string(p.Owner),
		p.TotalValue.String(),
		uint32(p.RebalanceThresholdBps),
		p.AutoRebalanceEnabled,
		toMicros(p.LastRebalance),
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicatePortfolio
	}
	return nil
}

// Update overwrites an existing portfolio
func (r *portfolioRepository) Update(ctx context.Context, p *domain.Portfolio) error {
	if err := r.checkWritable(); err != nil {
		return err
	}

	query := `
		UPDATE portfolios
		SET total_value = ?, rebalance_threshold_bps = ?, auto_rebalance_enabled = ?, last_rebalance = ?
		WHERE owner = ?`

	res, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		p.TotalValue.String(),
		uint32(p.RebalanceThresholdBps),
		p.AutoRebalanceEnabled,
		toMicros(p.LastRebalance),
		string(p.Owner),
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPortfolioNotFound
	}
	return nil
}

// ListAutoRebalance returns the owners with auto-rebalance enabled, ordered by owner
func (r *portfolioRepository) ListAutoRebalance(ctx context.Context) ([]domain.Principal, error) {
	query := `
		SELECT owner
		FROM portfolios
		WHERE auto_rebalance_enabled
		ORDER BY owner`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-rebalance portfolios: %w", err)
	}
	defer rows.Close()

	var owners []domain.Principal
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio owner: %w", err)
		}
		owners = append(owners, domain.Principal(owner))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return owners, nil
}
