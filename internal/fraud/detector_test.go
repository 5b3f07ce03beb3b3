package fraud

import (
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/analytics"
	"github.com/opensource-finance/kestrel/internal/domain"
)

var base = time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)

// addDisputedTx appends a transaction and a chargeback against it.
func addDisputedTx(snap *domain.Snapshot, id, customerID, merchantID, bin string, cbDate time.Time, amount float64) {
	snap.Transactions = append(snap.Transactions, &domain.Transaction{
		ID:         "tx-" + id,
		Timestamp:  cbDate.AddDate(0, 0, -10),
		Amount:     amount,
		Currency:   "MXN",
		MerchantID: merchantID,
		CustomerID: customerID,
		CardBIN:    bin,
		Status:     domain.TxStatusApproved,
	})
	snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
		ID:             "cb-" + id,
		TransactionID:  "tx-" + id,
		ChargebackDate: cbDate,
		ReasonCode:     "10.4",
		Status:         domain.DisputeOpen,
		Amount:         amount,
	})
}

func TestRepeatOffenders(t *testing.T) {
	detector := NewDetector(domain.DefaultAnalyticsConfig())

	snap := &domain.Snapshot{}
	// cust-a: exactly 3 chargebacks across 2 merchants.
	addDisputedTx(snap, "a1", "cust-a", "m-1", "400000", base, 100)
	addDisputedTx(snap, "a2", "cust-a", "m-1", "400001", base.AddDate(0, 0, 10), 200)
	addDisputedTx(snap, "a3", "cust-a", "m-2", "400002", base.AddDate(0, 0, 20), 300)
	// cust-b: only 2 chargebacks.
	addDisputedTx(snap, "b1", "cust-b", "m-1", "400003", base, 50)
	addDisputedTx(snap, "b2", "cust-b", "m-2", "400004", base.AddDate(0, 0, 5), 60)

	rows, err := detector.RepeatOffenders(snap, analytics.DefaultPage())
	if err != nil {
		t.Fatalf("RepeatOffenders failed: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("expected exactly one repeat offender, got %d", len(rows))
	}

	r := rows[0]
	if r.EntityID != "cust-a" || r.ChargebackCount != 3 {
		t.Errorf("offender = %s count %d, want cust-a count 3", r.EntityID, r.ChargebackCount)
	}
	if r.MerchantCount != 2 {
		t.Errorf("merchant count = %d, want 2", r.MerchantCount)
	}
	if r.TotalAmount != 600 {
		t.Errorf("total amount = %v, want 600", r.TotalAmount)
	}
	if r.PatternType != domain.PatternRepeatOffender {
		t.Errorf("pattern type = %s", r.PatternType)
	}
	if r.TimeWindowHours != nil {
		t.Errorf("repeat offender must not carry a time window, got %v", *r.TimeWindowHours)
	}
}

func TestBINPatterns(t *testing.T) {
	detector := NewDetector(domain.DefaultAnalyticsConfig())

	t.Run("ExactWindowBoundary", func(t *testing.T) {
		snap := &domain.Snapshot{}
		// Exactly 48h apart: qualifies (inclusive window).
		addDisputedTx(snap, "x1", "c1", "m-1", "411111", base, 100)
		addDisputedTx(snap, "x2", "c2", "m-2", "411111", base.Add(48*time.Hour), 200)
		// 48h + 1s apart: does not qualify.
		addDisputedTx(snap, "y1", "c3", "m-1", "524099", base, 100)
		addDisputedTx(snap, "y2", "c4", "m-2", "524099", base.Add(48*time.Hour+time.Second), 200)

		rows, err := detector.BINPatterns(snap, analytics.DefaultPage())
		if err != nil {
			t.Fatalf("BINPatterns failed: %v", err)
		}

		if len(rows) != 1 {
			t.Fatalf("expected only the 48h pair to qualify, got %d rows", len(rows))
		}
		if rows[0].EntityID != "411111" {
			t.Errorf("qualifying BIN = %s, want 411111", rows[0].EntityID)
		}
		if rows[0].TimeWindowHours == nil || *rows[0].TimeWindowHours != 48 {
			t.Errorf("expected fixed 48h window on BIN pattern")
		}
	})

	t.Run("ClusterIncludesDistantChargebacks", func(t *testing.T) {
		snap := &domain.Snapshot{}
		// Two close chargebacks plus one 30 days out: the whole set of 3
		// counts once the close pair exists.
		addDisputedTx(snap, "z1", "c1", "m-1", "601100", base, 100)
		addDisputedTx(snap, "z2", "c2", "m-2", "601100", base.Add(2*time.Hour), 200)
		addDisputedTx(snap, "z3", "c3", "m-3", "601100", base.AddDate(0, 0, 30), 300)

		rows, err := detector.BINPatterns(snap, analytics.DefaultPage())
		if err != nil {
			t.Fatalf("BINPatterns failed: %v", err)
		}

		if len(rows) != 1 {
			t.Fatalf("expected one BIN pattern, got %d", len(rows))
		}
		if rows[0].ChargebackCount != 3 {
			t.Errorf("chargeback count = %d, want full cluster of 3", rows[0].ChargebackCount)
		}
		if rows[0].MerchantCount != 3 || rows[0].TotalAmount != 600 {
			t.Errorf("cluster stats = %+v", rows[0])
		}
	})

	t.Run("SingleChargebackNeverQualifies", func(t *testing.T) {
		snap := &domain.Snapshot{}
		addDisputedTx(snap, "s1", "c1", "m-1", "411111", base, 100)

		rows, err := detector.BINPatterns(snap, analytics.DefaultPage())
		if err != nil {
			t.Fatalf("BINPatterns failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("single chargeback must not form a pattern, got %d rows", len(rows))
		}
	})
}

func TestDetectorOrderingAndPagination(t *testing.T) {
	detector := NewDetector(domain.DefaultAnalyticsConfig())

	snap := &domain.Snapshot{}
	for i := 0; i < 4; i++ {
		addDisputedTx(snap, fmt.Sprintf("a%d", i), "cust-big", "m-1", "400000", base.AddDate(0, 0, i*10), 10)
	}
	for i := 0; i < 3; i++ {
		addDisputedTx(snap, fmt.Sprintf("b%d", i), "cust-small", "m-2", "400001", base.AddDate(0, 0, i*10), 10)
	}

	rows, err := detector.RepeatOffenders(snap, analytics.DefaultPage())
	if err != nil {
		t.Fatalf("RepeatOffenders failed: %v", err)
	}
	if len(rows) != 2 || rows[0].EntityID != "cust-big" || rows[1].EntityID != "cust-small" {
		t.Fatalf("expected cust-big before cust-small, got %+v", rows)
	}

	second, err := detector.RepeatOffenders(snap, analytics.PageParams{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("RepeatOffenders failed: %v", err)
	}
	if len(second) != 1 || second[0].EntityID != "cust-small" {
		t.Errorf("pagination window wrong: %+v", second)
	}
}
