package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsJobs(t *testing.T) {
	p := New(4, nil)
	var n int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			atomic.AddInt64(&n, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if got := atomic.LoadInt64(&n); got != 10 {
		t.Fatalf("jobs ran = %d, want 10", got)
	}
}

func TestSubmitBoundsConcurrency(t *testing.T) {
	p := New(2, nil)
	var current, maxSeen int64
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			c := atomic.AddInt64(&current, 1)
			for {
				m := atomic.LoadInt64(&maxSeen)
				if c <= m || atomic.CompareAndSwapInt64(&maxSeen, m, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if maxSeen > 2 {
		t.Fatalf("observed concurrency %d, want <= 2", maxSeen)
	}
}

func TestOneJobFailureDoesNotBlockOthers(t *testing.T) {
	p := New(1, nil)
	var ran int64
	var wg sync.WaitGroup

	wg.Add(1)
	_ = p.Submit(context.Background(), func(ctx context.Context) error {
		defer wg.Done()
		return context.DeadlineExceeded
	})
	wg.Wait()

	wg.Add(1)
	_ = p.Submit(context.Background(), func(ctx context.Context) error {
		defer wg.Done()
		atomic.AddInt64(&ran, 1)
		return nil
	})
	wg.Wait()

	if atomic.LoadInt64(&ran) != 1 {
		t.Fatal("second job should have run despite first job's error")
	}
}

func TestTryAcquireRelease(t *testing.T) {
	p := New(1, nil)
	if !p.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if p.TryAcquire() {
		t.Fatal("expected second TryAcquire to fail while slot is held")
	}
	p.Release()
	if !p.TryAcquire() {
		t.Fatal("expected TryAcquire to succeed after Release")
	}
}
