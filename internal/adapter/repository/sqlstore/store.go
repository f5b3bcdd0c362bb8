package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

// querier is satisfied by *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store with one database transaction per unit of work
type Store struct {
	db *DB
}

// NewStore creates a new store over db
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn in a read-write transaction
func (s *Store) Atomic(ctx context.Context, fn domain.TxFunc) error {
	return s.run(ctx, nil, true, fn)
}

// View runs fn in a read-only transaction
func (s *Store) View(ctx context.Context, fn domain.TxFunc) error {
	return s.run(ctx, s.db.dialect.readOptions, false, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, writable bool, fn domain.TxFunc) error {
	dbTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	base := repo{q: dbTx, dialect: s.db.dialect, writable: writable}
	repos := domain.Repositories{
		Portfolios: &portfolioRepository{base},
		Assets:     &assetRepository{base},
		Prices:     &priceRepository{base},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// repo holds what every repository needs from the enclosing transaction
type repo struct {
	q        querier
	dialect  dialect
	writable bool
}

func (r repo) checkWritable() error {
	if !r.writable {
		return errReadOnly
	}
	return nil
}

// Quantities are stored as decimal strings so uint64 values survive both backends

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseUint(s string, column string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return v, nil
}

// Timestamps are stored as unix microseconds; 0 means never

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
