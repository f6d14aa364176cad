// Package scheduler drives the time-based snapshot trigger (spec §4.4): a
// ticker per topic that calls dedup.Engine.MaybeTimeBasedSnapshot on every
// tick. Grounded on webhook/manager.go's resetLivenessTimeout/scheduleRetry
// idiom of a timer owned by the struct with a cancellation channel closed
// on stop — generalized from a one-shot timer to a time.Ticker since this
// trigger fires repeatedly rather than once.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshotter is the subset of dedup.Engine the scheduler depends on.
type Snapshotter interface {
	MaybeTimeBasedSnapshot(ctx context.Context, interval time.Duration) error
}

// topicTicker pairs one topic's ticker goroutine with its cancellation
// channel.
type topicTicker struct {
	cancel chan struct{}
}

// Scheduler runs one ticker goroutine per registered topic.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	tickers map[string]*topicTicker
	wg      sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger:  logger,
		tickers: make(map[string]*topicTicker),
	}
}

// Start begins periodic time-based snapshot checks for topic, ticking
// every tickPeriod and calling snap.MaybeTimeBasedSnapshot(ctx, interval)
// on each tick. tickPeriod is how often to check; interval is the
// configured minimum gap between snapshots (deduplicationSnapshotIntervalSeconds).
// Calling Start again for a topic already running replaces its ticker.
func (s *Scheduler) Start(topic string, snap Snapshotter, tickPeriod, interval time.Duration) {
	s.Stop(topic)

	cancel := make(chan struct{})
	s.mu.Lock()
	s.tickers[topic] = &topicTicker{cancel: cancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(tickPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, done := context.WithTimeout(context.Background(), tickPeriod)
				if err := snap.MaybeTimeBasedSnapshot(ctx, interval); err != nil {
					s.logger.Warn("time-based snapshot check failed",
						zap.String("topic", topic), zap.Error(err))
				}
				done()
			case <-cancel:
				return
			}
		}
	}()
}

// Stop cancels topic's ticker goroutine, if one is running.
func (s *Scheduler) Stop(topic string) {
	s.mu.Lock()
	t, ok := s.tickers[topic]
	if ok {
		delete(s.tickers, topic)
	}
	s.mu.Unlock()

	if ok {
		close(t.cancel)
	}
}

// Shutdown stops every running ticker and waits for their goroutines to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	topics := make([]string, 0, len(s.tickers))
	for topic := range s.tickers {
		topics = append(topics, topic)
	}
	s.mu.Unlock()

	for _, topic := range topics {
		s.Stop(topic)
	}
	s.wg.Wait()
}
