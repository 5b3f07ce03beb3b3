package advisor

import (
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func buildSnapshot(disputes map[string][]string) *domain.Snapshot {
	snap := &domain.Snapshot{}
	when := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	for merchantID, codes := range disputes {
		snap.Merchants = append(snap.Merchants, &domain.Merchant{
			ID:   merchantID,
			Name: "Shop " + merchantID,
		})
		for i, code := range codes {
			txID := fmt.Sprintf("tx-%s-%d", merchantID, i)
			snap.Transactions = append(snap.Transactions, &domain.Transaction{
				ID:         txID,
				Timestamp:  when,
				Amount:     100,
				Currency:   "MXN",
				MerchantID: merchantID,
				CustomerID: "c-1",
				Status:     domain.TxStatusApproved,
			})
			snap.Chargebacks = append(snap.Chargebacks, &domain.Chargeback{
				ID:             "cb-" + txID,
				TransactionID:  txID,
				ChargebackDate: when.AddDate(0, 0, 10),
				ReasonCode:     code,
				Status:         domain.DisputeOpen,
				Amount:         100,
			})
		}
	}

	return snap
}

func TestRecommendations(t *testing.T) {
	advisor := NewAdvisor(domain.DefaultAnalyticsConfig())

	snap := buildSnapshot(map[string][]string{
		"m-1": {"10.4", "10.4", "13.1"},          // dominant 10.4
		"m-2": {"13.3"},                          // single dispute
		"m-3": {"99.9", "99.9", "99.9", "99.9"},  // unknown code
	})

	recs := advisor.Recommendations(snap)

	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}

	// Ordered by chargeback count descending.
	if recs[0].MerchantID != "m-3" || recs[1].MerchantID != "m-1" || recs[2].MerchantID != "m-2" {
		t.Fatalf("wrong order: %s, %s, %s", recs[0].MerchantID, recs[1].MerchantID, recs[2].MerchantID)
	}

	if recs[1].DominantReasonCode != "10.4" || recs[1].ChargebackCount != 2 {
		t.Errorf("m-1 dominant = %s count %d, want 10.4 count 2", recs[1].DominantReasonCode, recs[1].ChargebackCount)
	}
	if recs[1].Recommendation != "Implement 3D Secure authentication to reduce card-not-present fraud. Review your fraud scoring rules." {
		t.Errorf("m-1 recommendation = %q", recs[1].Recommendation)
	}
	if recs[1].MerchantName != "Shop m-1" {
		t.Errorf("m-1 name = %q", recs[1].MerchantName)
	}

	// Unknown code falls back to the generic message.
	if recs[0].Recommendation != "Review chargeback patterns and implement additional fraud prevention measures." {
		t.Errorf("fallback recommendation = %q", recs[0].Recommendation)
	}
}

func TestRecommendationsTieBreak(t *testing.T) {
	advisor := NewAdvisor(domain.DefaultAnalyticsConfig())

	// Two codes tied at 2 disputes each: lexicographically smallest wins.
	snap := buildSnapshot(map[string][]string{
		"m-1": {"13.1", "10.4", "13.1", "10.4"},
	})

	recs := advisor.Recommendations(snap)
	if len(recs) != 1 {
		t.Fatalf("expected one recommendation, got %d", len(recs))
	}
	if recs[0].DominantReasonCode != "10.4" {
		t.Errorf("tie-break code = %s, want 10.4", recs[0].DominantReasonCode)
	}
	if recs[0].ChargebackCount != 2 {
		t.Errorf("count = %d, want 2", recs[0].ChargebackCount)
	}
}

func TestRecommendationsSkipsMerchantsWithoutDisputes(t *testing.T) {
	advisor := NewAdvisor(domain.DefaultAnalyticsConfig())

	snap := buildSnapshot(map[string][]string{"m-1": {"10.4"}})
	snap.Merchants = append(snap.Merchants, &domain.Merchant{ID: "m-clean", Name: "Clean Shop"})
	snap.Transactions = append(snap.Transactions, &domain.Transaction{
		ID:         "tx-clean",
		Timestamp:  time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
		Amount:     50,
		Currency:   "MXN",
		MerchantID: "m-clean",
		CustomerID: "c-2",
		Status:     domain.TxStatusApproved,
	})

	recs := advisor.Recommendations(snap)
	if len(recs) != 1 || recs[0].MerchantID != "m-1" {
		t.Fatalf("expected only m-1, got %+v", recs)
	}
}

func TestRecommendationsEmptySnapshot(t *testing.T) {
	advisor := NewAdvisor(domain.DefaultAnalyticsConfig())
	if recs := advisor.Recommendations(&domain.Snapshot{}); len(recs) != 0 {
		t.Errorf("empty snapshot produced recommendations: %+v", recs)
	}
}
