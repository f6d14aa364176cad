package dedup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/durabroker/broker/ledger"
)

// takeSnapshot implements spec §4.2.7. The single-flight flag means a
// concurrent caller's snapshot is dropped, not queued: the next trigger
// (count-based or time-based) will retry, so nothing is lost except
// freshness.
func (e *Engine) takeSnapshot(ctx context.Context, pos ledger.Position, forced bool) error {
	if !e.snapshotTaking.CompareAndSwap(false, true) {
		return nil
	}
	defer e.snapshotTaking.Store(false)

	cur := e.getCursor()
	if cur == nil {
		return ErrCursorNotFound
	}

	snap := e.persisted.SortedSnapshot(e.cfg.MaxNumberOfProducers)

	if err := e.log.MarkDelete(ctx, e.cursorName, pos, ledger.Properties(snap)); err != nil {
		e.logger.Warn("snapshot failed, will retry on next trigger",
			zap.String("topic", e.topic), zap.Bool("forced", forced), zap.Error(err))
		return newEngineError(e.topic, "snapshot", err)
	}

	e.lastSnapshotAt.Store(time.Now().UnixNano())
	e.logger.Debug("snapshot written",
		zap.String("topic", e.topic), zap.Stringer("position", pos), zap.Int("entries", len(snap)))
	return nil
}

// LastSnapshotTime returns when the last snapshot durably completed, or the
// zero time if none has ever succeeded.
func (e *Engine) LastSnapshotTime() time.Time {
	ns := e.lastSnapshotAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// MaybeTimeBasedSnapshot implements the time-based trigger (spec §4.4):
// called on every scheduler tick, it only fires if the configured interval
// has elapsed AND the log has advanced past the cursor's current
// mark-delete position.
func (e *Engine) MaybeTimeBasedSnapshot(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	if e.Status() != Enabled {
		return nil
	}
	if time.Since(e.LastSnapshotTime()) < interval {
		return nil
	}

	cur := e.getCursor()
	if cur == nil {
		return nil
	}

	tail := e.log.LastConfirmedPosition()
	if !cur.MarkDeletedPosition().Less(tail) {
		return nil // log has not advanced; skip this tick
	}

	return e.takeSnapshot(ctx, tail, false)
}
