package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/matchpoint/internal/platform/logging"
)

func TestPollWorker_RunsFirstCycleImmediately(t *testing.T) {
	t.Parallel()

	f := newDetectionFixture(t, DetectionConfig{})
	worker := NewPollWorker(f.svc, logging.NewNop(), time.Hour, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	waitFor(t, time.Second, func() bool { return f.users.listCallCount() == 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestPollWorker_TicksUntilCancelled(t *testing.T) {
	t.Parallel()

	f := newDetectionFixture(t, DetectionConfig{})
	worker := NewPollWorker(f.svc, logging.NewNop(), 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	waitFor(t, 2*time.Second, func() bool { return f.users.listCallCount() >= 3 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestPollWorker_StoppedContextRunsNothing(t *testing.T) {
	t.Parallel()

	f := newDetectionFixture(t, DetectionConfig{})
	worker := NewPollWorker(f.svc, logging.NewNop(), 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if got := f.users.listCallCount(); got != 0 {
		t.Fatalf("cycles on cancelled context = %d, want 0", got)
	}
}

func TestNewPollWorker_Defaults(t *testing.T) {
	t.Parallel()

	f := newDetectionFixture(t, DetectionConfig{})
	worker := NewPollWorker(f.svc, nil, 0, 0)

	if worker.interval != defaultPollInterval {
		t.Fatalf("interval = %s, want %s", worker.interval, defaultPollInterval)
	}
	if worker.cycleTimeout != defaultCycleTimeout {
		t.Fatalf("cycleTimeout = %s, want %s", worker.cycleTimeout, defaultCycleTimeout)
	}
	if worker.logger == nil {
		t.Fatal("logger not defaulted")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
