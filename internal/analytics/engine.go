// Package analytics computes grouped chargeback statistics over the fact
// set. Every operation is a pure function of a Snapshot: explicit grouping,
// reduction, filtering, and sorting over in-memory collections, with
// limit/offset applied last. Division by zero always resolves to 0, never
// to an error.
package analytics

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine computes aggregations using injected thresholds and tables.
type Engine struct {
	cfg domain.AnalyticsConfig
}

// NewEngine creates an analytics engine from configuration.
func NewEngine(cfg domain.AnalyticsConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's analytics configuration.
func (e *Engine) Config() domain.AnalyticsConfig {
	return e.cfg
}

// ratio is chargebacks over transactions as a percentage, 4 decimals.
// Defined as 0 when there are no transactions.
func ratio(chargebacks, transactions int) float64 {
	if transactions == 0 {
		return 0.0
	}
	return round4(float64(chargebacks) / float64(transactions) * 100)
}

// MerchantRatios lists every merchant with its distinct transaction count,
// distinct chargeback count, and chargeback ratio. Merchants with zero
// transactions are included with ratio 0. Ordered by ratio descending,
// merchant ID ascending on ties so pagination is stable.
func (e *Engine) MerchantRatios(snap *domain.Snapshot, page PageParams) ([]domain.MerchantRatio, error) {
	if err := page.validate(MaxPageLimit); err != nil {
		return nil, err
	}

	txCount := make(map[string]int)
	txMerchant := make(map[string]string, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		txCount[tx.MerchantID]++
		txMerchant[tx.ID] = tx.MerchantID
	}

	cbCount := make(map[string]int)
	for _, cb := range snap.Chargebacks {
		merchantID, ok := txMerchant[cb.TransactionID]
		if !ok {
			// Orphaned chargeback: fails to join, excluded.
			continue
		}
		cbCount[merchantID]++
	}

	rows := make([]domain.MerchantRatio, 0, len(snap.Merchants))
	for _, m := range snap.Merchants {
		rows = append(rows, domain.MerchantRatio{
			MerchantID:        m.ID,
			Name:              m.Name,
			Country:           m.Country,
			TotalTransactions: txCount[m.ID],
			TotalChargebacks:  cbCount[m.ID],
			ChargebackRatio:   ratio(cbCount[m.ID], txCount[m.ID]),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ChargebackRatio != rows[j].ChargebackRatio {
			return rows[i].ChargebackRatio > rows[j].ChargebackRatio
		}
		return rows[i].MerchantID < rows[j].MerchantID
	})

	return paginate(rows, page), nil
}

// ReasonCodeSummary groups all chargebacks by (reason code, description)
// with count, summed disputed amount, and share of the overall chargeback
// total. Ordered by count descending, code ascending on ties.
func (e *Engine) ReasonCodeSummary(snap *domain.Snapshot) []domain.ReasonCodeSummary {
	type key struct{ code, description string }

	groups := make(map[key]*domain.ReasonCodeSummary)
	for _, cb := range snap.Chargebacks {
		k := key{cb.ReasonCode, cb.ReasonDescription}
		g, ok := groups[k]
		if !ok {
			g = &domain.ReasonCodeSummary{
				ReasonCode:        cb.ReasonCode,
				ReasonDescription: cb.ReasonDescription,
			}
			groups[k] = g
		}
		g.Count++
		g.TotalAmount += cb.Amount
	}

	total := len(snap.Chargebacks)
	rows := make([]domain.ReasonCodeSummary, 0, len(groups))
	for _, g := range groups {
		if total > 0 {
			g.Percentage = round2(float64(g.Count) / float64(total) * 100)
		}
		rows = append(rows, *g)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ReasonCode < rows[j].ReasonCode
	})

	return rows
}

// SegmentRisk groups transactions by the given dimension, left-joins their
// chargebacks, and keeps only segments whose ratio strictly exceeds the
// threshold. Ordered by ratio descending, segment value ascending on ties.
func (e *Engine) SegmentRisk(snap *domain.Snapshot, dim Dimension, threshold float64, page PageParams) ([]domain.SegmentRisk, error) {
	if err := page.validate(MaxPageLimit); err != nil {
		return nil, err
	}

	txCount := make(map[string]int)
	txSegment := make(map[string]string, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		seg := dim.segmentKey(tx)
		txCount[seg]++
		txSegment[tx.ID] = seg
	}

	cbCount := make(map[string]int)
	for _, cb := range snap.Chargebacks {
		seg, ok := txSegment[cb.TransactionID]
		if !ok {
			continue
		}
		cbCount[seg]++
	}

	rows := make([]domain.SegmentRisk, 0, len(txCount))
	for seg, txs := range txCount {
		r := ratio(cbCount[seg], txs)
		if r <= threshold {
			continue
		}
		rows = append(rows, domain.SegmentRisk{
			Dimension:         dim.String(),
			SegmentValue:      seg,
			TotalTransactions: txs,
			TotalChargebacks:  cbCount[seg],
			ChargebackRatio:   r,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ChargebackRatio != rows[j].ChargebackRatio {
			return rows[i].ChargebackRatio > rows[j].ChargebackRatio
		}
		return rows[i].SegmentValue < rows[j].SegmentValue
	})

	return paginate(rows, page), nil
}

// WinRateByReasonCode groups chargebacks by (reason code, description) with
// outcome counts and win rate over resolved disputes. A code with no
// resolved disputes has rate 0. Ordered by win rate descending, code
// ascending on ties.
func (e *Engine) WinRateByReasonCode(snap *domain.Snapshot, page PageParams) ([]domain.WinRate, error) {
	if err := page.validate(MaxPageLimit); err != nil {
		return nil, err
	}

	type key struct{ code, description string }

	groups := make(map[key]*domain.WinRate)
	for _, cb := range snap.Chargebacks {
		k := key{cb.ReasonCode, cb.ReasonDescription}
		g, ok := groups[k]
		if !ok {
			g = &domain.WinRate{
				ReasonCode:        cb.ReasonCode,
				ReasonDescription: cb.ReasonDescription,
			}
			groups[k] = g
		}
		g.Total++
		switch cb.Status {
		case domain.DisputeWon:
			g.Won++
		case domain.DisputeLost:
			g.Lost++
		case domain.DisputeOpen:
			g.Open++
		}
	}

	rows := make([]domain.WinRate, 0, len(groups))
	for _, g := range groups {
		if resolved := g.Won + g.Lost; resolved > 0 {
			g.Rate = round2(float64(g.Won) / float64(resolved) * 100)
		}
		rows = append(rows, *g)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rate != rows[j].Rate {
			return rows[i].Rate > rows[j].Rate
		}
		return rows[i].ReasonCode < rows[j].ReasonCode
	})

	return paginate(rows, page), nil
}
