// Package domain defines the core interfaces and types for tariffkit.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// Quote and query methods require agencyID for strict multi-agency
// isolation; rate tables are shared schedule data.
type Repository interface {
	// Rate schedule operations
	SaveRateTable(ctx context.Context, table *RateTable) error
	GetRateTable(ctx context.Context, product ProductKey) (*RateTable, error)
	ListRateTables(ctx context.Context) (RateTableSet, error)

	// Quote operations
	SaveQuote(ctx context.Context, agencyID string, quote *Quote) error
	GetQuote(ctx context.Context, agencyID string, quoteID string) (*Quote, error)

	// Saved tariff query operations
	SaveTariffQuery(ctx context.Context, agencyID string, query *TariffQuery) error
	GetTariffQuery(ctx context.Context, agencyID string, queryID string) (*TariffQuery, error)
	ListTariffQueries(ctx context.Context, agencyID string) ([]*TariffQuery, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
