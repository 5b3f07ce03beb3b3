package domain

// MerchantRatio is one row of the merchant chargeback-ratio listing.
type MerchantRatio struct {
	MerchantID        string  `json:"merchantId"`
	Name              string  `json:"name"`
	Country           string  `json:"country"`
	TotalTransactions int     `json:"totalTransactions"`
	TotalChargebacks  int     `json:"totalChargebacks"`
	ChargebackRatio   float64 `json:"chargebackRatio"`
}

// ReasonCodeSummary aggregates chargebacks for one reason code.
type ReasonCodeSummary struct {
	ReasonCode        string  `json:"reasonCode"`
	ReasonDescription string  `json:"reasonDescription"`
	Count             int     `json:"count"`
	TotalAmount       float64 `json:"totalAmount"`
	Percentage        float64 `json:"percentage"`
}

// SegmentRisk is one high-risk segment for a grouping dimension.
type SegmentRisk struct {
	Dimension         string  `json:"dimension"`
	SegmentValue      string  `json:"segmentValue"`
	TotalTransactions int     `json:"totalTransactions"`
	TotalChargebacks  int     `json:"totalChargebacks"`
	ChargebackRatio   float64 `json:"chargebackRatio"`
}

// WinRate reports dispute outcomes for one reason code.
// WinRate is computed over resolved disputes only.
type WinRate struct {
	ReasonCode        string  `json:"reasonCode"`
	ReasonDescription string  `json:"reasonDescription"`
	Total             int     `json:"total"`
	Won               int     `json:"won"`
	Lost              int     `json:"lost"`
	Open              int     `json:"open"`
	Rate              float64 `json:"winRate"`
}

// TrendPoint is one calendar bucket of chargeback volume.
type TrendPoint struct {
	Period          string  `json:"period"`
	ChargebackCount int     `json:"chargebackCount"`
	TotalAmount     float64 `json:"totalAmount"`
}

// Fraud pattern types.
const (
	PatternRepeatOffender = "REPEAT_OFFENDER"
	PatternBIN            = "BIN_PATTERN"
)

// FraudPattern is the shared output shape of both fraud detection rules.
// TimeWindowHours is nil for patterns with an unbounded window.
type FraudPattern struct {
	PatternType     string  `json:"patternType"`
	EntityID        string  `json:"entityId"`
	ChargebackCount int     `json:"chargebackCount"`
	MerchantCount   int     `json:"merchantCount"`
	TotalAmount     float64 `json:"totalAmount"`
	TimeWindowHours *int    `json:"timeWindowHours"`
}

// Alert types and severities.
const (
	AlertHighChargebackRatio = "HIGH_CHARGEBACK_RATIO"
	AlertWeeklySpike         = "WEEKLY_SPIKE"
	AlertHighValueDispute    = "HIGH_VALUE_DISPUTE"
	AlertCustomRule          = "CUSTOM_RULE"

	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Alert is one actionable finding from the alert rule evaluator.
// Alerts are recomputed on every call and never persisted.
type Alert struct {
	AlertType   string   `json:"alertType"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	EntityID    *string  `json:"entityId,omitempty"`
	EntityName  *string  `json:"entityName,omitempty"`
	MetricValue *float64 `json:"metricValue,omitempty"`
}

// Recommendation maps a merchant's dominant dispute reason to a
// remediation message.
type Recommendation struct {
	MerchantID         string `json:"merchantId"`
	MerchantName       string `json:"merchantName"`
	DominantReasonCode string `json:"dominantReasonCode"`
	ChargebackCount    int    `json:"chargebackCount"`
	Recommendation     string `json:"recommendation"`
}
