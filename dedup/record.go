package dedup

import (
	"context"

	"go.uber.org/zap"

	"github.com/durabroker/broker/ledger"
)

// RecordPersistedNormal records the durable outcome of a successful append
// on the normal or repl-v1 path (spec §4.2.4): persisted[producer] advances
// to max(existing, H), then the count-based snapshot trigger is checked.
func (e *Engine) RecordPersistedNormal(ctx context.Context, producer string, seq, highest int64, pos ledger.Position) error {
	if e.Status() != Enabled {
		return ErrNotEnabled
	}
	h := effectiveHighest(seq, highest)
	e.persisted.Max(producer, h)
	e.bumpSnapshotCounter(ctx, pos)
	return nil
}

// RecordPersistedReplV2 records the durable outcome on the repl-v2 path:
// persisted[P_LID]/persisted[P_EID] are set directly (not maxed) because
// ClassifyReplV2 only reaches an append for a pair already known to be
// >= the last pushed pair.
func (e *Engine) RecordPersistedReplV2(ctx context.Context, producer string, lid, eid int64, pos ledger.Position) error {
	if e.Status() != Enabled {
		return ErrNotEnabled
	}
	e.persisted.Store(lidKey(producer), lid)
	e.persisted.Store(eidKey(producer), eid)
	e.bumpSnapshotCounter(ctx, pos)
	return nil
}

// bumpSnapshotCounter implements the count-based trigger (spec §4.4):
// every snapshotInterval persisted entries fires an async snapshot at pos
// on the shared worker pool, so the publish path is never blocked by it.
func (e *Engine) bumpSnapshotCounter(ctx context.Context, pos ledger.Position) {
	if e.cfg.SnapshotInterval <= 0 {
		return
	}
	count := e.snapshotCounter.Add(1)
	if count < e.cfg.SnapshotInterval {
		return
	}
	if !e.snapshotCounter.CompareAndSwap(count, 0) {
		// another caller already reset and is scheduling; no need to pile on.
		return
	}
	if err := e.pool.Submit(ctx, func(ctx context.Context) error {
		return e.takeSnapshot(ctx, pos, false)
	}); err != nil {
		e.logger.Warn("failed to schedule count-based snapshot",
			zap.String("topic", e.topic), zap.Error(err))
	}
}
