package dedup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/durabroker/broker/ledger"
	"github.com/durabroker/broker/metadata"
)

// recover implements spec §4.2.6. It runs on the shared worker pool,
// outside of statusMu, so it never blocks CheckStatus callers for other
// topics. It finalizes the transition to Enabled (or Failed) itself once
// done.
func (e *Engine) recover(ctx context.Context) error {
	cur, err := e.log.OpenCursor(ctx, e.cursorName)
	if err != nil {
		e.fail(err)
		return err
	}
	e.setCursor(cur)

	now := time.Now()
	for name, seq := range cur.Properties() {
		e.pushedMu.Lock()
		e.pushed[name] = seq
		e.pushedMu.Unlock()
		e.persisted.Store(name, seq)

		e.registryMu.Lock()
		e.inactiveProducers[name] = now
		e.registryMu.Unlock()
	}

	seenDuringReplay := make(map[string]struct{})
	count := 0

	last, err := e.log.ReplayRange(ctx, e.cursorName, func(entry ledger.Entry) error {
		meta, _, decodeErr := metadata.Decode(entry.Payload)
		if decodeErr != nil {
			e.logger.Warn("skipping undecodable entry during replay",
				zap.String("topic", e.topic), zap.Stringer("position", entry.Position), zap.Error(decodeErr))
			return nil
		}
		if meta.IsMarker() {
			return nil
		}

		count++

		if lid, eid, ok := metadata.ParseReplSourcePosition(meta.Properties); ok {
			lk, ek := lidKey(meta.ProducerName), eidKey(meta.ProducerName)
			e.pushedMu.Lock()
			e.pushed[lk] = lid
			e.pushed[ek] = eid
			e.pushedMu.Unlock()
			e.persisted.Store(lk, lid)
			e.persisted.Store(ek, eid)
			seenDuringReplay[lk] = struct{}{}
			seenDuringReplay[ek] = struct{}{}
		} else {
			h := meta.EffectiveHighestSequenceId()
			e.pushedMu.Lock()
			if cur, ok := e.pushed[meta.ProducerName]; !ok || h > cur {
				e.pushed[meta.ProducerName] = h
			}
			e.pushedMu.Unlock()
			e.persisted.Max(meta.ProducerName, h)
		}
		seenDuringReplay[meta.ProducerName] = struct{}{}
		return nil
	})
	if err != nil {
		e.fail(err)
		return err
	}

	// A producer active anywhere in the replayed suffix cannot have been
	// purged (purge only removes entries strictly older than its cutoff,
	// and replay only walks entries at-or-after the last snapshot), so any
	// inactive-producer entry seeded from the snapshot for a name that
	// reappears in the suffix no longer reflects reality: clear it and let
	// a fresh disconnect re-add it if the producer is in fact gone.
	if len(seenDuringReplay) > 0 {
		e.registryMu.Lock()
		for name := range seenDuringReplay {
			delete(e.inactiveProducers, name)
		}
		e.registryMu.Unlock()
	}

	if e.cfg.SnapshotInterval > 0 && int64(count) >= e.cfg.SnapshotInterval && !last.IsZero() {
		if err := e.takeSnapshot(ctx, last, true); err != nil {
			e.logger.Warn("post-recovery snapshot failed",
				zap.String("topic", e.topic), zap.Error(err))
		}
	}

	e.statusMu.Lock()
	e.status.Store(int32(Enabled))
	e.statusMu.Unlock()

	e.logger.Info("dedup recovery complete",
		zap.String("topic", e.topic), zap.Int("replayed_entries", count))
	return nil
}

func (e *Engine) fail(err error) {
	e.statusMu.Lock()
	e.status.Store(int32(Failed))
	e.statusMu.Unlock()
	e.logger.Error("dedup engine failed", zap.String("topic", e.topic), zap.Error(err))
}
