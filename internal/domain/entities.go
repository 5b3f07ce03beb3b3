// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"time"
)

// Merchant identifies a seller in the fact set.
type Merchant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Transaction statuses.
const (
	TxStatusApproved = "approved"
	TxStatusDeclined = "declined"
	TxStatusPending  = "pending"
)

// Payment methods.
const (
	PaymentCreditCard   = "credit_card"
	PaymentDebitCard    = "debit_card"
	PaymentLocalPayment = "local_payment"
)

// Transaction is a single payment attempt against a merchant.
type Transaction struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	MerchantID      string    `json:"merchantId"`
	CustomerID      string    `json:"customerId"`
	PaymentMethod   string    `json:"paymentMethod"`
	Country         string    `json:"country"`
	ProductCategory string    `json:"productCategory"`
	Status          string    `json:"status"`

	// CardBIN is the 6-digit issuing-bank prefix of the card number.
	CardBIN string `json:"cardBin"`
}

// Chargeback statuses.
const (
	DisputeOpen = "open"
	DisputeWon  = "won"
	DisputeLost = "lost"
)

// Chargeback is a dispute raised against a transaction.
type Chargeback struct {
	ID                string    `json:"id"`
	TransactionID     string    `json:"transactionId"`
	ChargebackDate    time.Time `json:"chargebackDate"`
	ReasonCode        string    `json:"reasonCode"`
	ReasonDescription string    `json:"reasonDescription"`
	Status            string    `json:"status"`
	Amount            float64   `json:"amount"`
}

// Resolved reports whether the dispute has been decided either way.
// Open disputes never enter win-rate denominators.
func (c *Chargeback) Resolved() bool {
	return c.Status == DisputeWon || c.Status == DisputeLost
}

// Snapshot is a read-only view of the full fact set at one point in time.
// All analytics operations are pure functions over a Snapshot; the engine
// never mutates it.
type Snapshot struct {
	Merchants    []*Merchant
	Transactions []*Transaction
	Chargebacks  []*Chargeback
}

// TransactionsByID builds an index of transactions keyed by ID.
// Chargebacks referencing an unknown transaction simply fail to join.
func (s *Snapshot) TransactionsByID() map[string]*Transaction {
	idx := make(map[string]*Transaction, len(s.Transactions))
	for _, tx := range s.Transactions {
		idx[tx.ID] = tx
	}
	return idx
}

// MerchantsByID builds an index of merchants keyed by ID.
func (s *Snapshot) MerchantsByID() map[string]*Merchant {
	idx := make(map[string]*Merchant, len(s.Merchants))
	for _, m := range s.Merchants {
		idx[m.ID] = m
	}
	return idx
}
