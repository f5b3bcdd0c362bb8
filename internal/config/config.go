package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/simaogato/rebalancer-backend/internal/domain"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application configuration
type Config struct {
	GRPCAddr string
	// APIToken is shared by clients that name themselves with x-principal; empty disables it
	APIToken string
	// APIKeys binds tokens to fixed principals, e.g. "s3cr3t=alice,0racle=price-authority"
	APIKeys        string
	PriceAuthority string

	StoreDriver string
	DBConnStr   string
	SQLitePath  string

	LogLevel  string
	LogPretty bool

	// AutoRebalanceSchedule is a cron spec; empty disables the sweep
	AutoRebalanceSchedule string
	PriceSeed             string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		GRPCAddr:              getEnv("GRPC_ADDR", ":8080"),
		APIKeys:               os.Getenv("API_KEYS"),
		PriceAuthority:        getEnv("PRICE_AUTHORITY", "price-authority"),
		StoreDriver:           getEnv("STORE_DRIVER", StoreMemory),
		DBConnStr:             postgresConnString(),
		SQLitePath:            getEnv("SQLITE_PATH", "./data/rebalancer.db"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogPretty:             getEnvAsBool("LOG_PRETTY", false),
		AutoRebalanceSchedule: os.Getenv("AUTO_REBALANCE_SCHEDULE"),
		PriceSeed:             os.Getenv("PRICE_SEED"),
	}
	// The development token is only a default while no bound keys are configured
	if cfg.APIKeys == "" {
		cfg.APIToken = getEnv("API_TOKEN", "dev-token")
	} else {
		cfg.APIToken = os.Getenv("API_TOKEN")
	}
	if _, set := os.LookupEnv("AUTO_REBALANCE_SCHEDULE"); !set {
		cfg.AutoRebalanceSchedule = "@every 1m"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, postgres, sqlite; got %q", c.StoreDriver)
	}

	if c.GRPCAddr == "" {
		return fmt.Errorf("GRPC_ADDR is required")
	}
	if c.APIToken == "" && c.APIKeys == "" {
		return fmt.Errorf("API_TOKEN or API_KEYS is required")
	}
	keys, err := ParseAPIKeys(c.APIKeys)
	if err != nil {
		return fmt.Errorf("invalid API_KEYS: %w", err)
	}
	if _, shared := keys[c.APIToken]; shared && c.APIToken != "" {
		return fmt.Errorf("API_TOKEN must not also be listed in API_KEYS")
	}
	if c.PriceAuthority == "" {
		return fmt.Errorf("PRICE_AUTHORITY is required")
	}
	if c.StoreDriver == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
	}

	if _, err := ParsePriceSeed(c.PriceSeed); err != nil {
		return fmt.Errorf("invalid PRICE_SEED: %w", err)
	}

	return nil
}

// SeedPrices returns the startup prices declared in PRICE_SEED
func (c *Config) SeedPrices() []domain.PriceRecord {
	prices, _ := ParsePriceSeed(c.PriceSeed)
	return prices
}

// BoundTokens returns the token to principal bindings declared in API_KEYS
func (c *Config) BoundTokens() map[string]domain.Principal {
	keys, _ := ParseAPIKeys(c.APIKeys)
	return keys
}

// ParseAPIKeys parses a comma separated list of token=principal pairs.
// A token may be bound only once; several tokens may share a principal.
func ParseAPIKeys(s string) (map[string]domain.Principal, error) {
	keys := make(map[string]domain.Principal)
	s = strings.TrimSpace(s)
	if s == "" {
		return keys, nil
	}

	for i, pair := range strings.Split(s, ",") {
		token, principal, ok := strings.Cut(strings.TrimSpace(pair), "=")
		token, principal = strings.TrimSpace(token), strings.TrimSpace(principal)
		// Entries are reported by position so tokens never end up in logs
		if !ok || token == "" || principal == "" {
			return nil, fmt.Errorf("entry %d is not token=principal", i+1)
		}
		if _, dup := keys[token]; dup {
			return nil, fmt.Errorf("entry %d repeats a token", i+1)
		}
		keys[token] = domain.Principal(principal)
	}
	return keys, nil
}

// ParsePriceSeed parses a comma separated list of assetId=price pairs, e.g. "1=50000,2=3000".
// Order is preserved; a repeated asset id is an error.
func ParsePriceSeed(s string) ([]domain.PriceRecord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	seen := make(map[domain.AssetID]bool)
	var prices []domain.PriceRecord
	for _, pair := range strings.Split(s, ",") {
		idStr, priceStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not assetId=price", pair)
		}

		id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid asset id in %q: %w", pair, err)
		}
		price, err := strconv.ParseUint(strings.TrimSpace(priceStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid price in %q: %w", pair, err)
		}
		if price == 0 {
			return nil, fmt.Errorf("price of asset %d must be greater than zero", id)
		}
		if seen[domain.AssetID(id)] {
			return nil, fmt.Errorf("asset %d listed twice", id)
		}
		seen[domain.AssetID(id)] = true

		prices = append(prices, domain.PriceRecord{AssetID: domain.AssetID(id), Price: price})
	}
	return prices, nil
}

// postgresConnString uses DB_CONN_STR when set, otherwise builds it from individual vars (Docker friendly)
func postgresConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "rebalancer"),
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
