package dedup

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/durabroker/broker/ledger"
)

// CheckStatus drives the status state machine (spec §4.2.5). shouldBeEnabled
// is the caller's current configuration (brokerDeduplicationEnabled,
// possibly topic-overridden). Overlapping callers do not block: if a
// transition is already in flight, this call is a no-op and the caller is
// expected to defer to the in-flight transition (short-poll or retry
// later), matching "overlapping callers observe the in-flight transition
// and defer".
func (e *Engine) CheckStatus(ctx context.Context, shouldBeEnabled bool) error {
	if !e.statusMu.TryLock() {
		return nil
	}
	defer e.statusMu.Unlock()

	switch Status(e.status.Load()) {
	case Recovering, Removing:
		return nil

	case Initialized:
		if shouldBeEnabled {
			return e.enableLocked(ctx)
		}
		return e.disableLocked(ctx)

	case Disabled:
		if shouldBeEnabled {
			return e.enableLocked(ctx)
		}
		return nil

	case Enabled:
		if !shouldBeEnabled {
			return e.disableLocked(ctx)
		}
		return nil

	case Failed:
		// Failed is terminal until re-checked; any call retries.
		if shouldBeEnabled {
			return e.enableLocked(ctx)
		}
		return e.disableLocked(ctx)

	default:
		return nil
	}
}

// enableLocked must be called with statusMu held. It transitions to
// Recovering and submits the recovery job to the shared worker pool so
// that one topic's recovery never blocks CheckStatus callers for other
// topics (spec §4.2.6, §5).
func (e *Engine) enableLocked(ctx context.Context) error {
	e.status.Store(int32(Recovering))

	err := e.pool.Submit(ctx, func(jobCtx context.Context) error {
		return e.recover(jobCtx)
	})
	if err != nil {
		e.status.Store(int32(Failed))
		return newEngineError(e.topic, "enable", err)
	}
	return nil
}

// disableLocked must be called with statusMu held. It deletes the recovery
// cursor (CursorNotFound is success) and, when coming from Enabled, clears
// every map the engine owns.
func (e *Engine) disableLocked(ctx context.Context) error {
	prev := Status(e.status.Load())

	if err := e.log.DeleteCursor(ctx, e.cursorName); err != nil && !errors.Is(err, ledger.ErrCursorNotFound) {
		e.status.Store(int32(Failed))
		return newEngineError(e.topic, "disable", err)
	}

	if prev == Enabled {
		e.pushedMu.Lock()
		e.pushed = make(map[string]int64)
		e.pushedMu.Unlock()

		e.persisted.Clear()

		e.registryMu.Lock()
		e.inactiveProducers = make(map[string]time.Time)
		e.registryMu.Unlock()
	}

	e.setCursor(nil)
	e.status.Store(int32(Disabled))
	e.logger.Info("dedup disabled", zap.String("topic", e.topic))
	return nil
}
