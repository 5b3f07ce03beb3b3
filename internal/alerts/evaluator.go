// Package alerts evaluates the built-in and operator-defined alert rules
// over a dataset snapshot. Alerts are recomputed on every call and never
// persisted.
package alerts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/currency"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Evaluator runs the alert rules against a snapshot.
type Evaluator struct {
	cfg    domain.AnalyticsConfig
	conv   *currency.Converter
	custom *RuleEngine
	now    func() time.Time
}

// NewEvaluator compiles any configured custom rules and returns an
// evaluator bound to the wall clock.
func NewEvaluator(cfg domain.AnalyticsConfig) (*Evaluator, error) {
	ev := &Evaluator{
		cfg:  cfg,
		conv: currency.NewConverter(cfg.CurrencyRates),
		now:  time.Now,
	}

	if len(cfg.CustomAlertRules) > 0 {
		engine, err := NewRuleEngine()
		if err != nil {
			return nil, err
		}
		if err := engine.LoadRules(cfg.CustomAlertRules); err != nil {
			return nil, err
		}
		ev.custom = engine
	}

	return ev, nil
}

// WithClock replaces the time source. The spike rule windows are anchored
// to this clock.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// WithRatioThreshold returns a copy of the evaluator with the ratio rule
// cutoff replaced. The compiled custom rules are shared, not recompiled.
func (e *Evaluator) WithRatioThreshold(threshold float64) *Evaluator {
	clone := *e
	clone.cfg.MerchantRatioAlertThreshold = threshold
	return &clone
}

// Config returns the analytics configuration the evaluator runs with.
func (e *Evaluator) Config() domain.AnalyticsConfig {
	return e.cfg
}

// Evaluate runs every rule and concatenates the results. Each rule's
// output is internally ordered; there is no cross-rule ordering beyond
// the fixed rule sequence.
func (e *Evaluator) Evaluate(snap *domain.Snapshot) []domain.Alert {
	stats := merchantStatsFor(snap)

	alerts := e.ratioAlerts(stats)
	alerts = append(alerts, e.spikeAlerts(snap)...)
	alerts = append(alerts, e.highValueAlerts(snap)...)
	if e.custom != nil {
		alerts = append(alerts, e.custom.Evaluate(stats)...)
	}

	return alerts
}

// merchantStats is the per-merchant input shared by the ratio rule and
// the custom rule engine. Only merchants with at least one transaction
// appear here.
type merchantStats struct {
	id           string
	name         string
	transactions int
	chargebacks  int
	ratio        float64
}

func merchantStatsFor(snap *domain.Snapshot) []merchantStats {
	txCount := make(map[string]int)
	for _, tx := range snap.Transactions {
		txCount[tx.MerchantID]++
	}

	cbCount := make(map[string]int)
	txByID := snap.TransactionsByID()
	for _, cb := range snap.Chargebacks {
		tx, ok := txByID[cb.TransactionID]
		if !ok {
			continue
		}
		cbCount[tx.MerchantID]++
	}

	stats := make([]merchantStats, 0, len(snap.Merchants))
	for _, m := range snap.Merchants {
		txs := txCount[m.ID]
		if txs == 0 {
			continue
		}
		cbs := cbCount[m.ID]
		stats = append(stats, merchantStats{
			id:           m.ID,
			name:         m.Name,
			transactions: txs,
			chargebacks:  cbs,
			ratio:        round4(float64(cbs) / float64(txs) * 100),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].id < stats[j].id })

	return stats
}

func (e *Evaluator) ratioAlerts(stats []merchantStats) []domain.Alert {
	var alerts []domain.Alert
	for _, s := range stats {
		if s.ratio <= e.cfg.MerchantRatioAlertThreshold {
			continue
		}
		s := s
		alerts = append(alerts, domain.Alert{
			AlertType: domain.AlertHighChargebackRatio,
			Severity:  domain.SeverityHigh,
			Description: fmt.Sprintf("Merchant '%s' has chargeback ratio of %.2f%% (threshold: %v%%)",
				s.name, s.ratio, e.cfg.MerchantRatioAlertThreshold),
			EntityID:    &s.id,
			EntityName:  &s.name,
			MetricValue: &s.ratio,
		})
	}
	return alerts
}

// spikeAlerts compares the trailing 7-day chargeback count against the
// preceding 7-day window. A zero prior window never fires, however large
// the trailing count.
func (e *Evaluator) spikeAlerts(snap *domain.Snapshot) []domain.Alert {
	now := e.now()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var last, prev int
	for _, cb := range snap.Chargebacks {
		switch {
		case !cb.ChargebackDate.Before(weekAgo):
			last++
		case !cb.ChargebackDate.Before(twoWeeksAgo):
			prev++
		}
	}

	if prev == 0 || last <= 2*prev {
		return nil
	}

	metric := float64(last)
	return []domain.Alert{{
		AlertType: domain.AlertWeeklySpike,
		Severity:  domain.SeverityMedium,
		Description: fmt.Sprintf("Chargeback spike detected: %d in last 7 days vs %d in previous 7 days",
			last, prev),
		MetricValue: &metric,
	}}
}

// highValueAlerts flags every disputed transaction whose amount converts
// to more than the USD threshold. The converted transaction amount, not
// the chargeback amount, is compared.
func (e *Evaluator) highValueAlerts(snap *domain.Snapshot) []domain.Alert {
	txByID := snap.TransactionsByID()
	merchByID := snap.MerchantsByID()

	ordered := make([]*domain.Chargeback, len(snap.Chargebacks))
	copy(ordered, snap.Chargebacks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].TransactionID < ordered[j].TransactionID })

	var alerts []domain.Alert
	for _, cb := range ordered {
		tx, ok := txByID[cb.TransactionID]
		if !ok {
			continue
		}
		m, ok := merchByID[tx.MerchantID]
		if !ok {
			continue
		}
		usd := e.conv.ToUSD(tx.Amount, tx.Currency)
		if usd <= e.cfg.HighValueThresholdUSD {
			continue
		}

		id, name := m.ID, m.Name
		metric := round2(usd)
		alerts = append(alerts, domain.Alert{
			AlertType: domain.AlertHighValueDispute,
			Severity:  domain.SeverityHigh,
			Description: fmt.Sprintf("High-value chargeback $%.2f USD on transaction %s at '%s'",
				metric, tx.ID, name),
			EntityID:    &id,
			EntityName:  &name,
			MetricValue: &metric,
		})
	}

	return alerts
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
