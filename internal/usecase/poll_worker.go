package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
)

const (
	defaultPollInterval = 75 * time.Second
	defaultCycleTimeout = 60 * time.Second
)

// PollWorker drives the detection engine on a fixed interval. The first
// cycle runs immediately; every cycle gets its own deadline so one slow
// provider day never wedges the loop.
type PollWorker struct {
	engine       *DetectionService
	logger       *logging.Logger
	interval     time.Duration
	cycleTimeout time.Duration
}

func NewPollWorker(engine *DetectionService, logger *logging.Logger, interval, cycleTimeout time.Duration) *PollWorker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if cycleTimeout <= 0 {
		cycleTimeout = defaultCycleTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PollWorker{
		engine:       engine,
		logger:       logger,
		interval:     interval,
		cycleTimeout: cycleTimeout,
	}
}

// Run blocks until ctx is cancelled. Intended for a run group or a bare
// goroutine in main.
func (w *PollWorker) Run(ctx context.Context) {
	runID := uuid.NewString()
	w.logger.InfoContext(ctx, "poll worker started",
		"run_id", runID, "interval", w.interval.String(), "cycle_timeout", w.cycleTimeout.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runCycle(ctx, runID)
	for {
		select {
		case <-ticker.C:
			w.runCycle(ctx, runID)
		case <-ctx.Done():
			w.logger.Info("poll worker stopped", "run_id", runID)
			return
		}
	}
}

func (w *PollWorker) runCycle(ctx context.Context, runID string) {
	if ctx.Err() != nil {
		return
	}

	cycleCtx, cancel := context.WithTimeout(ctx, w.cycleTimeout)
	defer cancel()

	report, err := w.engine.RunCycle(cycleCtx)
	if err != nil {
		w.logger.ErrorContext(ctx, "detection cycle failed",
			"run_id", runID, "cycle_id", report.CycleID, "error", err)
	}
}
