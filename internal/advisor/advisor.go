// Package advisor maps each merchant's dominant dispute reason to a
// remediation recommendation.
package advisor

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Advisor produces per-merchant recommendations from the configured
// reason-code remediation table.
type Advisor struct {
	cfg domain.AnalyticsConfig
}

// NewAdvisor creates an advisor with the given tables.
func NewAdvisor(cfg domain.AnalyticsConfig) *Advisor {
	return &Advisor{cfg: cfg}
}

// Recommendations returns one record per merchant with at least one
// chargeback. The dominant reason code is the code with the most
// chargebacks for that merchant; ties break to the lexicographically
// smallest code. Records are ordered by chargeback count descending,
// then merchant id ascending.
func (a *Advisor) Recommendations(snap *domain.Snapshot) []domain.Recommendation {
	txByID := snap.TransactionsByID()
	merchByID := snap.MerchantsByID()

	// merchant id -> reason code -> chargeback count
	counts := make(map[string]map[string]int)
	for _, cb := range snap.Chargebacks {
		tx, ok := txByID[cb.TransactionID]
		if !ok {
			continue
		}
		if _, ok := merchByID[tx.MerchantID]; !ok {
			continue
		}
		byCode := counts[tx.MerchantID]
		if byCode == nil {
			byCode = make(map[string]int)
			counts[tx.MerchantID] = byCode
		}
		byCode[cb.ReasonCode]++
	}

	recs := make([]domain.Recommendation, 0, len(counts))
	for merchantID, byCode := range counts {
		code, count := dominantCode(byCode)
		recs = append(recs, domain.Recommendation{
			MerchantID:         merchantID,
			MerchantName:       merchByID[merchantID].Name,
			DominantReasonCode: code,
			ChargebackCount:    count,
			Recommendation:     a.remediation(code),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ChargebackCount != recs[j].ChargebackCount {
			return recs[i].ChargebackCount > recs[j].ChargebackCount
		}
		return recs[i].MerchantID < recs[j].MerchantID
	})

	return recs
}

func dominantCode(byCode map[string]int) (string, int) {
	var best string
	bestCount := -1
	for code, count := range byCode {
		if count > bestCount || (count == bestCount && code < best) {
			best, bestCount = code, count
		}
	}
	return best, bestCount
}

func (a *Advisor) remediation(code string) string {
	if msg, ok := a.cfg.Recommendations[code]; ok {
		return msg
	}
	return a.cfg.FallbackRecommendation
}
