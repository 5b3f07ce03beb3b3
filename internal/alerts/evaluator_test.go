package alerts

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var testNow = time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(domain.DefaultAnalyticsConfig())
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	return ev.WithClock(func() time.Time { return testNow })
}

func merchantWithDisputes(snap *domain.Snapshot, id, name string, txs, cbs int) {
	snap.Merchants = append(snap.Merchants, &domain.Merchant{ID: id, Name: name, Country: "MX"})
	for i := 0; i < txs; i++ {
		txID := fmt.Sprintf("tx-%s-%d", id, i)
		snap.Transactions = append(snap.Transactions, &domain.Transaction{
			ID:         txID,
			Timestamp:  testNow.AddDate(0, 0, -60),
			Amount:     100,
			Currency:   "MXN",
			MerchantID: id,
			CustomerID: "cust-" + txID,
			Status:     domain.TxStatusApproved,
		})
		if i < cbs {
			snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
				ID:             "cb-" + txID,
				TransactionID:  txID,
				ChargebackDate: testNow.AddDate(0, 0, -50),
				ReasonCode:     "10.4",
				Status:         domain.DisputeOpen,
				Amount:         100,
			})
		}
	}
}

func alertsOfType(alerts []domain.Alert, alertType string) []domain.Alert {
	var out []domain.Alert
	for _, a := range alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestHighChargebackRatioAlerts(t *testing.T) {
	ev := newTestEvaluator(t)

	snap := &domain.Snapshot{}
	merchantWithDisputes(snap, "m-bad", "Risky Shop", 100, 5)  // 5.0%
	merchantWithDisputes(snap, "m-ok", "Clean Shop", 100, 1)   // 1.0%
	merchantWithDisputes(snap, "m-edge", "Edge Shop", 200, 3)  // exactly 1.5%
	snap.Merchants = append(snap.Merchants, &domain.Merchant{ID: "m-idle", Name: "Idle Shop"})

	got := alertsOfType(ev.Evaluate(snap), domain.AlertHighChargebackRatio)

	if len(got) != 1 {
		t.Fatalf("expected one ratio alert, got %d: %+v", len(got), got)
	}

	a := got[0]
	if a.Severity != domain.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", a.Severity)
	}
	want := "Merchant 'Risky Shop' has chargeback ratio of 5.00% (threshold: 1.5%)"
	if a.Description != want {
		t.Errorf("description = %q, want %q", a.Description, want)
	}
	if a.EntityID == nil || *a.EntityID != "m-bad" {
		t.Errorf("entity id = %v", a.EntityID)
	}
	if a.MetricValue == nil || *a.MetricValue != 5.0 {
		t.Errorf("metric = %v", a.MetricValue)
	}
}

func TestWeeklySpikeAlerts(t *testing.T) {
	addChargebacks := func(snap *domain.Snapshot, daysAgo, n int) {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("tx-%d-%d", daysAgo, i)
			snap.Transactions = append(snap.Transactions, &domain.Transaction{
				ID:         id,
				Timestamp:  testNow.AddDate(0, 0, -daysAgo-10),
				Amount:     50,
				Currency:   "MXN",
				MerchantID: "m-1",
				CustomerID: "c-" + id,
				Status:     domain.TxStatusApproved,
			})
			snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
				ID:             "cb-" + id,
				TransactionID:  id,
				ChargebackDate: testNow.AddDate(0, 0, -daysAgo),
				ReasonCode:     "10.4",
				Status:         domain.DisputeOpen,
				Amount:         50,
			})
		}
	}

	t.Run("FiresWhenMoreThanDouble", func(t *testing.T) {
		snap := &domain.Snapshot{Merchants: []*domain.Merchant{{ID: "m-1", Name: "Shop"}}}
		addChargebacks(snap, 2, 21)
		addChargebacks(snap, 9, 10)

		got := alertsOfType(newTestEvaluator(t).Evaluate(snap), domain.AlertWeeklySpike)
		if len(got) != 1 {
			t.Fatalf("expected spike alert, got %d", len(got))
		}
		want := "Chargeback spike detected: 21 in last 7 days vs 10 in previous 7 days"
		if got[0].Description != want {
			t.Errorf("description = %q, want %q", got[0].Description, want)
		}
		if got[0].Severity != domain.SeverityMedium {
			t.Errorf("severity = %s, want MEDIUM", got[0].Severity)
		}
		if got[0].MetricValue == nil || *got[0].MetricValue != 21 {
			t.Errorf("metric = %v, want 21", got[0].MetricValue)
		}
	})

	t.Run("ExactlyDoubleDoesNotFire", func(t *testing.T) {
		snap := &domain.Snapshot{Merchants: []*domain.Merchant{{ID: "m-1", Name: "Shop"}}}
		addChargebacks(snap, 2, 20)
		addChargebacks(snap, 9, 10)

		if got := alertsOfType(newTestEvaluator(t).Evaluate(snap), domain.AlertWeeklySpike); len(got) != 0 {
			t.Errorf("exactly double must not fire, got %+v", got)
		}
	})

	t.Run("ZeroBaselineDoesNotFire", func(t *testing.T) {
		snap := &domain.Snapshot{Merchants: []*domain.Merchant{{ID: "m-1", Name: "Shop"}}}
		addChargebacks(snap, 2, 50)

		if got := alertsOfType(newTestEvaluator(t).Evaluate(snap), domain.AlertWeeklySpike); len(got) != 0 {
			t.Errorf("zero baseline must not fire, got %+v", got)
		}
	})
}

func TestHighValueDisputeAlerts(t *testing.T) {
	ev := newTestEvaluator(t)

	snap := &domain.Snapshot{
		Merchants: []*domain.Merchant{{ID: "m-1", Name: "Big Ticket"}},
	}
	addDispute := func(txID string, amount float64, currency string) {
		snap.Transactions = append(snap.Transactions, &domain.Transaction{
			ID:         txID,
			Timestamp:  testNow.AddDate(0, 0, -30),
			Amount:     amount,
			Currency:   currency,
			MerchantID: "m-1",
			CustomerID: "c-1",
			Status:     domain.TxStatusApproved,
		})
		snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
			ID:             "cb-" + txID,
			TransactionID:  txID,
			ChargebackDate: testNow.AddDate(0, 0, -20),
			ReasonCode:     "10.4",
			Status:         domain.DisputeOpen,
			Amount:         amount,
		})
	}
	addDispute("tx-big", 10000, "MXN")   // 588.24 USD
	addDispute("tx-small", 501, "MXN")   // 29.47 USD
	addDispute("tx-edge", 8500, "MXN")   // exactly 500.00 USD
	addDispute("tx-usd", 600, "USD")     // unknown currency, 600 as-is

	got := alertsOfType(ev.Evaluate(snap), domain.AlertHighValueDispute)

	if len(got) != 2 {
		t.Fatalf("expected two high-value alerts, got %d: %+v", len(got), got)
	}

	// Ordered by transaction id.
	want := "High-value chargeback $588.24 USD on transaction tx-big at 'Big Ticket'"
	if got[0].Description != want {
		t.Errorf("description = %q, want %q", got[0].Description, want)
	}
	if got[0].MetricValue == nil || *got[0].MetricValue != 588.24 {
		t.Errorf("metric = %v, want 588.24", got[0].MetricValue)
	}
	if got[0].EntityID == nil || *got[0].EntityID != "m-1" {
		t.Errorf("entity id = %v, want m-1", got[0].EntityID)
	}
	if !strings.Contains(got[1].Description, "tx-usd") {
		t.Errorf("second alert should be for tx-usd, got %q", got[1].Description)
	}
}

func TestEvaluateEmptySnapshot(t *testing.T) {
	snap := &domain.Snapshot{}
	if got := newTestEvaluator(t).Evaluate(snap); len(got) != 0 {
		t.Errorf("empty snapshot produced alerts: %+v", got)
	}
}
