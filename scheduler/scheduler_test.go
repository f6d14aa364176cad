package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSnapshotter struct {
	calls atomic.Int64
}

func (c *countingSnapshotter) MaybeTimeBasedSnapshot(_ context.Context, _ time.Duration) error {
	c.calls.Add(1)
	return nil
}

func TestStartTicksRepeatedly(t *testing.T) {
	s := New(nil)
	snap := &countingSnapshotter{}
	s.Start("topic-a", snap, 5*time.Millisecond, time.Second)
	defer s.Shutdown()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if snap.calls.Load() >= 3 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected at least 3 ticks, got %d", snap.calls.Load())
}

func TestStopHaltsFurtherTicks(t *testing.T) {
	s := New(nil)
	snap := &countingSnapshotter{}
	s.Start("topic-a", snap, 5*time.Millisecond, time.Second)

	time.Sleep(20 * time.Millisecond)
	s.Stop("topic-a")
	afterStop := snap.calls.Load()

	time.Sleep(30 * time.Millisecond)
	if snap.calls.Load() != afterStop {
		t.Fatalf("calls advanced after Stop: %d -> %d", afterStop, snap.calls.Load())
	}
}

func TestShutdownStopsAllTopics(t *testing.T) {
	s := New(nil)
	a := &countingSnapshotter{}
	b := &countingSnapshotter{}
	s.Start("topic-a", a, 5*time.Millisecond, time.Second)
	s.Start("topic-b", b, 5*time.Millisecond, time.Second)

	time.Sleep(15 * time.Millisecond)
	s.Shutdown()

	afterA, afterB := a.calls.Load(), b.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if a.calls.Load() != afterA || b.calls.Load() != afterB {
		t.Fatalf("tickers still running after Shutdown")
	}
}
