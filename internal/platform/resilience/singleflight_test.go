package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, _ := g.Do("schedule-2026-08-23", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if val != "ok" {
				t.Errorf("expected shared value %q, got %q", "ok", val)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_SequentialCallsRunSeparately(t *testing.T) {
	var g SingleFlight[int]
	var counter int32

	for i := 0; i < 3; i++ {
		val, err, shared := g.Do("events", func() (int, error) {
			return int(atomic.AddInt32(&counter, 1)), nil
		})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if shared {
			t.Fatalf("call %d should not be shared", i)
		}
		if val != i+1 {
			t.Fatalf("call %d expected %d, got %d", i, i+1, val)
		}
	}
}
