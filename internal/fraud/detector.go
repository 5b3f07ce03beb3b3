// Package fraud detects multi-signal chargeback patterns: repeat-offender
// customers and temporally clustered card-BIN disputes.
package fraud

import (
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/analytics"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Detector runs pattern detection over a snapshot. Both detection rules
// are independent and non-exclusive.
type Detector struct {
	cfg domain.AnalyticsConfig
}

// NewDetector creates a detector from configuration.
func NewDetector(cfg domain.AnalyticsConfig) *Detector {
	return &Detector{cfg: cfg}
}

// group accumulates joined chargeback facts for one entity.
type group struct {
	chargebacks int
	merchants   map[string]struct{}
	amount      float64
	dates       []time.Time
}

func (g *group) add(cb *domain.Chargeback, tx *domain.Transaction) {
	g.chargebacks++
	g.merchants[tx.MerchantID] = struct{}{}
	g.amount += cb.Amount
	g.dates = append(g.dates, cb.ChargebackDate)
}

// RepeatOffenders reports customers whose transactions have accumulated at
// least the configured number of chargebacks (default 3), regardless of
// how far apart in time they are. Ordered by chargeback count descending,
// customer ID ascending on ties.
func (d *Detector) RepeatOffenders(snap *domain.Snapshot, page analytics.PageParams) ([]domain.FraudPattern, error) {
	groups, err := d.groupBy(snap, page, func(tx *domain.Transaction) string { return tx.CustomerID })
	if err != nil {
		return nil, err
	}

	rows := make([]domain.FraudPattern, 0, len(groups))
	for customerID, g := range groups {
		if g.chargebacks < d.cfg.RepeatOffenderMinDisputes {
			continue
		}
		rows = append(rows, domain.FraudPattern{
			PatternType:     domain.PatternRepeatOffender,
			EntityID:        customerID,
			ChargebackCount: g.chargebacks,
			MerchantCount:   len(g.merchants),
			TotalAmount:     g.amount,
			TimeWindowHours: nil, // unbounded window for this pattern
		})
	}

	return rank(rows, page), nil
}

// BINPatterns reports card BINs with temporally clustered disputes: a BIN
// qualifies once any two of its chargebacks fall within the configured
// window (default 48h, inclusive) of each other. The reported counts cover
// the BIN's full chargeback set, not just the close pair. Ordered by
// chargeback count descending, BIN ascending on ties.
func (d *Detector) BINPatterns(snap *domain.Snapshot, page analytics.PageParams) ([]domain.FraudPattern, error) {
	groups, err := d.groupBy(snap, page, func(tx *domain.Transaction) string { return tx.CardBIN })
	if err != nil {
		return nil, err
	}

	window := time.Duration(d.cfg.BINClusterWindowHours) * time.Hour
	windowHours := d.cfg.BINClusterWindowHours

	rows := make([]domain.FraudPattern, 0, len(groups))
	for bin, g := range groups {
		if g.chargebacks < 2 || !hasClosePair(g.dates, window) {
			continue
		}
		hours := windowHours
		rows = append(rows, domain.FraudPattern{
			PatternType:     domain.PatternBIN,
			EntityID:        bin,
			ChargebackCount: g.chargebacks,
			MerchantCount:   len(g.merchants),
			TotalAmount:     g.amount,
			TimeWindowHours: &hours,
		})
	}

	return rank(rows, page), nil
}

// groupBy joins each chargeback to its transaction and accumulates per-key
// groups. Chargebacks whose transaction is missing do not join and are
// excluded.
func (d *Detector) groupBy(snap *domain.Snapshot, page analytics.PageParams, keyOf func(*domain.Transaction) string) (map[string]*group, error) {
	if err := analytics.ValidatePage(page, analytics.MaxPageLimit); err != nil {
		return nil, err
	}

	txByID := snap.TransactionsByID()
	groups := make(map[string]*group)
	for _, cb := range snap.Chargebacks {
		tx, ok := txByID[cb.TransactionID]
		if !ok {
			continue
		}
		key := keyOf(tx)
		g, ok := groups[key]
		if !ok {
			g = &group{merchants: make(map[string]struct{})}
			groups[key] = g
		}
		g.add(cb, tx)
	}
	return groups, nil
}

// hasClosePair reports whether any two timestamps are within the window of
// each other. After sorting, the minimum pairwise gap is between adjacent
// elements, so one linear pass suffices.
func hasClosePair(dates []time.Time, window time.Duration) bool {
	if len(dates) < 2 {
		return false
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) <= window {
			return true
		}
	}
	return false
}

func rank(rows []domain.FraudPattern, page analytics.PageParams) []domain.FraudPattern {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ChargebackCount != rows[j].ChargebackCount {
			return rows[i].ChargebackCount > rows[j].ChargebackCount
		}
		return rows[i].EntityID < rows[j].EntityID
	})
	return analytics.Page(rows, page)
}
