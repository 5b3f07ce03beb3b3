// Package sweeper runs the periodic background alert sweep.
package sweeper

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/alerts"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Sweeper periodically loads a snapshot, evaluates the alert rules, and
// publishes every fired alert on the event bus. The HTTP alert endpoint
// stays the synchronous path; the sweep exists for consumers that want
// push delivery without polling.
type Sweeper struct {
	repo      domain.Repository
	bus       domain.EventBus
	evaluator *alerts.Evaluator
	interval  time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// SweepResult is the payload published on TopicSweepDone.
type SweepResult struct {
	AlertCount int       `json:"alertCount"`
	DurationMs int64     `json:"durationMs"`
	SweptAt    time.Time `json:"sweptAt"`
}

// New creates a sweeper. Interval zero falls back to 15 minutes.
func New(repo domain.Repository, eventBus domain.EventBus, evaluator *alerts.Evaluator, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		repo:      repo,
		bus:       eventBus,
		evaluator: evaluator,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the sweep loop. The first sweep runs after one full
// interval, not immediately.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()

	slog.Info("sweeper started",
		"interval", s.interval.String(),
	)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()

	slog.Info("sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep runs one evaluation pass. Exposed so the server can trigger a
// sweep on demand.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		slog.Error("sweep snapshot load failed",
			"error", err,
		)
		return
	}

	fired := s.evaluator.Evaluate(snap)

	for _, alert := range fired {
		payload, err := json.Marshal(alert)
		if err != nil {
			slog.Error("failed to marshal alert",
				"alert_type", alert.AlertType,
				"error", err,
			)
			continue
		}
		if err := s.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"alert_type", alert.AlertType,
				"error", err,
			)
		}
	}

	result := SweepResult{
		AlertCount: len(fired),
		DurationMs: time.Since(start).Milliseconds(),
		SweptAt:    start.UTC(),
	}
	if payload, err := json.Marshal(result); err == nil {
		_ = s.bus.Publish(ctx, domain.TopicSweepDone, payload)
	}

	slog.Info("sweep complete",
		"alerts", len(fired),
		"duration_ms", result.DurationMs,
	)
}
