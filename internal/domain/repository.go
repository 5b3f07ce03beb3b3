package domain

import (
	"context"
	"time"
)

// Repository defines the read interface over the fact set, plus the bulk
// write used by the seeder. The analytics core only ever reads.
type Repository interface {
	// Snapshot loads the full fact set in one pass.
	// Consistency is whatever the underlying store provides; the core adds
	// no transaction semantics of its own.
	Snapshot(ctx context.Context) (*Snapshot, error)

	ListMerchants(ctx context.Context) ([]*Merchant, error)
	ListTransactions(ctx context.Context) ([]*Transaction, error)
	ListChargebacks(ctx context.Context) ([]*Chargeback, error)

	// SeedDataset replaces the stored fact set. Used only by cmd/seed.
	SeedDataset(ctx context.Context, snap *Snapshot) error

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
