// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot loads the full fact set in one pass. The three reads run on
// the same connection pool without an explicit transaction; isolation is
// whatever the store provides.
func (r *SQLRepository) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	merchants, err := r.ListMerchants(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := r.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	chargebacks, err := r.ListChargebacks(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Merchants:    merchants,
		Transactions: transactions,
		Chargebacks:  chargebacks,
	}, nil
}

// ListMerchants retrieves all merchants ordered by id.
func (r *SQLRepository) ListMerchants(ctx context.Context) ([]*domain.Merchant, error) {
	query := `
		SELECT id, name, country
		FROM merchants
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merchants []*domain.Merchant
	for rows.Next() {
		var m domain.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Country); err != nil {
			return nil, err
		}
		merchants = append(merchants, &m)
	}

	return merchants, rows.Err()
}

// ListTransactions retrieves all transactions ordered by timestamp.
func (r *SQLRepository) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT id, timestamp, amount, currency, merchant_id, customer_id,
			   payment_method, country, product_category, status, card_bin
		FROM transactions
		ORDER BY timestamp, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.Timestamp, &tx.Amount, &tx.Currency,
			&tx.MerchantID, &tx.CustomerID, &tx.PaymentMethod,
			&tx.Country, &tx.ProductCategory, &tx.Status, &tx.CardBIN,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, &tx)
	}

	return transactions, rows.Err()
}

// ListChargebacks retrieves all chargebacks ordered by date.
func (r *SQLRepository) ListChargebacks(ctx context.Context) ([]*domain.Chargeback, error) {
	query := `
		SELECT id, transaction_id, chargeback_date, reason_code,
			   reason_description, status, amount
		FROM chargebacks
		ORDER BY chargeback_date, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chargebacks []*domain.Chargeback
	for rows.Next() {
		var cb domain.Chargeback
		if err := rows.Scan(
			&cb.ID, &cb.TransactionID, &cb.ChargebackDate,
			&cb.ReasonCode, &cb.ReasonDescription, &cb.Status, &cb.Amount,
		); err != nil {
			return nil, err
		}
		chargebacks = append(chargebacks, &cb)
	}

	return chargebacks, rows.Err()
}

// SeedDataset replaces the stored fact set atomically.
func (r *SQLRepository) SeedDataset(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"chargebacks", "transactions", "merchants"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insertMerchant := r.rebind(`
		INSERT INTO merchants (id, name, country)
		VALUES (?, ?, ?)
	`)
	for _, m := range snap.Merchants {
		if _, err := tx.ExecContext(ctx, insertMerchant, m.ID, m.Name, m.Country); err != nil {
			return fmt.Errorf("failed to insert merchant %s: %w", m.ID, err)
		}
	}

	insertTransaction := r.rebind(`
		INSERT INTO transactions (
			id, timestamp, amount, currency, merchant_id, customer_id,
			payment_method, country, product_category, status, card_bin
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, t := range snap.Transactions {
		if _, err := tx.ExecContext(ctx, insertTransaction,
			t.ID, t.Timestamp, t.Amount, t.Currency,
			t.MerchantID, t.CustomerID, t.PaymentMethod,
			t.Country, t.ProductCategory, t.Status, t.CardBIN,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
		}
	}

	insertChargeback := r.rebind(`
		INSERT INTO chargebacks (
			id, transaction_id, chargeback_date, reason_code,
			reason_description, status, amount
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for _, cb := range snap.Chargebacks {
		if _, err := tx.ExecContext(ctx, insertChargeback,
			cb.ID, cb.TransactionID, cb.ChargebackDate,
			cb.ReasonCode, cb.ReasonDescription, cb.Status, cb.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert chargeback %s: %w", cb.ID, err)
		}
	}

	return tx.Commit()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
