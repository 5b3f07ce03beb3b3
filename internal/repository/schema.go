package repository

// Schema definitions for the Kestrel fact set.
// Compatible with both SQLite and PostgreSQL.

const schemaMerchants = `
CREATE TABLE IF NOT EXISTS merchants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    country TEXT NOT NULL
);
`

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    amount REAL NOT NULL,
    currency TEXT NOT NULL,
    merchant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    country TEXT NOT NULL,
    product_category TEXT NOT NULL,
    status TEXT NOT NULL,
    card_bin TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_merchant ON transactions(merchant_id);
CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_bin ON transactions(card_bin);
`

const schemaChargebacks = `
CREATE TABLE IF NOT EXISTS chargebacks (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    chargeback_date TIMESTAMP NOT NULL,
    reason_code TEXT NOT NULL,
    reason_description TEXT NOT NULL,
    status TEXT NOT NULL,
    amount REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chargebacks_transaction ON chargebacks(transaction_id);
CREATE INDEX IF NOT EXISTS idx_chargebacks_date ON chargebacks(chargeback_date);
CREATE INDEX IF NOT EXISTS idx_chargebacks_reason ON chargebacks(reason_code);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaMerchants,
		schemaTransactions,
		schemaChargebacks,
	}
}
