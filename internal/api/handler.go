package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/opensource-finance/kestrel/internal/advisor"
	"github.com/opensource-finance/kestrel/internal/alerts"
	"github.com/opensource-finance/kestrel/internal/analytics"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/fraud"
)

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Repo      domain.Repository
	Cache     domain.Cache
	Bus       domain.EventBus
	Engine    *analytics.Engine
	Detector  *fraud.Detector
	Evaluator *alerts.Evaluator
	Advisor   *advisor.Advisor
	Version   string
	CacheCfg  domain.CacheConfig
}

// Handler holds dependencies for API handlers.
type Handler struct {
	deps Dependencies
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.deps.Repo != nil {
		if err := h.deps.Repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.deps.Bus != nil {
		if err := h.deps.Bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.deps.Version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// MerchantRatios handles GET /merchants/chargeback-ratio.
func (h *Handler) MerchantRatios(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, analytics.DefaultPageLimit)
	if err != nil {
		writeClientError(w, err)
		return
	}

	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Engine.MerchantRatios(snap, page)
	})
}

// ReasonCodes handles GET /reason-codes.
func (h *Handler) ReasonCodes(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Engine.ReasonCodeSummary(snap), nil
	})
}

// HighRiskSegments handles GET /segments/high-risk.
func (h *Handler) HighRiskSegments(w http.ResponseWriter, r *http.Request) {
	dim, err := analytics.ParseDimension(r.URL.Query().Get("dimension"))
	if err != nil {
		writeClientError(w, err)
		return
	}

	threshold, err := parseThreshold(r, h.deps.Engine.Config().SegmentRatioThreshold)
	if err != nil {
		writeClientError(w, err)
		return
	}

	page, err := parsePage(r, analytics.DefaultPageLimit)
	if err != nil {
		writeClientError(w, err)
		return
	}

	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Engine.SegmentRisk(snap, dim, threshold, page)
	})
}

// Trends handles GET /trends.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = "daily"
	}
	g, err := analytics.ParseGranularity(granularity)
	if err != nil {
		writeClientError(w, err)
		return
	}

	page, err := parsePage(r, analytics.DefaultTrendLimit)
	if err != nil {
		writeClientError(w, err)
		return
	}

	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Engine.Trends(snap, g, page)
	})
}

// WinRate handles GET /win-rate.
func (h *Handler) WinRate(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, analytics.DefaultPageLimit)
	if err != nil {
		writeClientError(w, err)
		return
	}

	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Engine.WinRateByReasonCode(snap, page)
	})
}

// FraudPatterns handles GET /fraud-patterns. Repeat offenders come first,
// then BIN patterns; the window applies to each rule's set independently.
func (h *Handler) FraudPatterns(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, analytics.DefaultPageLimit)
	if err != nil {
		writeClientError(w, err)
		return
	}

	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		offenders, err := h.deps.Detector.RepeatOffenders(snap, page)
		if err != nil {
			return nil, err
		}
		bins, err := h.deps.Detector.BINPatterns(snap, page)
		if err != nil {
			return nil, err
		}
		patterns := make([]domain.FraudPattern, 0, len(offenders)+len(bins))
		patterns = append(patterns, offenders...)
		patterns = append(patterns, bins...)
		return patterns, nil
	})
}

// Alerts handles GET /alerts. Never cached: the spike rule is anchored to
// the wall clock.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	evaluator := h.deps.Evaluator
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err := parseThreshold(r, evaluator.Config().MerchantRatioAlertThreshold)
		if err != nil {
			writeClientError(w, err)
			return
		}
		evaluator = evaluator.WithRatioThreshold(threshold)
	}

	snap, ok := h.loadSnapshot(w, r)
	if !ok {
		return
	}

	fired := evaluator.Evaluate(snap)
	if fired == nil {
		fired = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, fired)
}

// Recommendations handles GET /recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func(snap *domain.Snapshot) (any, error) {
		return h.deps.Advisor.Recommendations(snap), nil
	})
}

// cached loads a snapshot, computes a response, and memoizes the JSON
// payload keyed by path plus canonical query string.
func (h *Handler) cached(w http.ResponseWriter, r *http.Request, compute func(*domain.Snapshot) (any, error)) {
	ctx := r.Context()
	key := r.URL.Path + "?" + r.URL.Query().Encode()

	if h.deps.Cache != nil {
		if payload, err := h.deps.Cache.Get(ctx, key); err == nil && payload != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(payload)
			return
		}
	}

	snap, ok := h.loadSnapshot(w, r)
	if !ok {
		return
	}

	result, err := compute(snap)
	if err != nil {
		writeClientError(w, err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("failed to marshal response", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
		return
	}

	if h.deps.Cache != nil {
		_ = h.deps.Cache.Set(ctx, key, payload, h.deps.CacheCfg.ResponseTTL)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *Handler) loadSnapshot(w http.ResponseWriter, r *http.Request) (*domain.Snapshot, bool) {
	snap, err := h.deps.Repo.Snapshot(r.Context())
	if err != nil {
		slog.Error("failed to load snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return nil, false
	}
	return snap, true
}

// parsePage reads limit/offset query parameters. Range validation happens
// inside the engines; only syntax is rejected here.
func parsePage(r *http.Request, defaultLimit int) (analytics.PageParams, error) {
	page := analytics.PageParams{Limit: defaultLimit}

	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, fmt.Errorf("%w: limit must be an integer", analytics.ErrInvalidPage)
		}
		page.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, fmt.Errorf("%w: offset must be an integer", analytics.ErrInvalidPage)
		}
		page.Offset = n
	}

	return page, nil
}

func parseThreshold(r *http.Request, fallback float64) (float64, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return fallback, nil
	}

	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil || threshold < 0 || threshold > 100 {
		return 0, errors.New("threshold must be a number between 0 and 100")
	}
	return threshold, nil
}

// writeClientError maps parameter errors to 400 responses.
func writeClientError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
