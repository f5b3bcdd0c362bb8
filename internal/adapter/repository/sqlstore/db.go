// Package sqlstore implements domain.Store on top of database/sql.
// Postgres (lib/pq) is the production backend; SQLite (modernc) serves
// single-node deployments and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Driver selects the database backend
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// dialect captures the few places the backends differ
type dialect struct {
	// lockClause is appended to reads that must lock the owner row inside a write transaction
	lockClause string
	// quantityType stores uint64 values (asset ids, amounts, prices) without loss
	quantityType string
	// valueType stores price-weighted totals, which exceed 64 bits
	valueType string
	// readOptions are used for View transactions
	readOptions *sql.TxOptions
	// numbered rewrites ? placeholders to $1, $2, ...
	numbered bool
}

// rebind adapts a query written with ? placeholders to the backend
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

var dialects = map[Driver]dialect{
	DriverPostgres: {
		lockClause:   " FOR UPDATE",
		quantityType: "NUMERIC(20,0)",
		valueType:    "NUMERIC(40,0)",
		readOptions:  &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead},
		numbered:     true,
	},
	// SQLite runs on a single connection, which already serializes transactions.
	// TEXT keeps large integers from being coerced to REAL.
	DriverSQLite: {
		lockClause:   "",
		quantityType: "TEXT",
		valueType:    "TEXT",
		readOptions:  nil,
	},
}

// DB wraps the database connection
type DB struct {
	*sql.DB
	driver  Driver
	dialect dialect
}

// NewDB opens and pings a database connection.
// For Postgres dsn is e.g. "host=localhost port=5432 user=postgres password=postgres dbname=rebalancer sslmode=disable";
// for SQLite it is a file path or ":memory:".
func NewDB(driver Driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: driver, dialect: d}, nil
}

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// sqliteDSN appends the connection pragmas to a file DSN, keeping any query it already has
func sqliteDSN(dsn string) string {
	if dsn == ":memory:" {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

// Driver returns the backend this connection talks to
func (db *DB) Driver() Driver {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema(db.dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func schema(d dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS portfolios (
			owner                   TEXT PRIMARY KEY,
			total_value             ` + d.valueType + ` NOT NULL,
			rebalance_threshold_bps INTEGER NOT NULL,
			auto_rebalance_enabled  BOOLEAN NOT NULL,
			last_rebalance          BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			owner                  TEXT NOT NULL REFERENCES portfolios (owner),
			asset_id               ` + d.quantityType + ` NOT NULL,
			position               INTEGER NOT NULL,
			name                   TEXT NOT NULL,
			current_amount         ` + d.quantityType + ` NOT NULL,
			target_allocation_bps  INTEGER NOT NULL,
			current_allocation_bps INTEGER NOT NULL,
			PRIMARY KEY (owner, asset_id)
		)`,
		`CREATE TABLE IF NOT EXISTS asset_prices (
			asset_id     ` + d.quantityType + ` PRIMARY KEY,
			price        ` + d.quantityType + ` NOT NULL,
			last_updated BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_portfolios_auto_rebalance ON portfolios (auto_rebalance_enabled)`,
	}
}
