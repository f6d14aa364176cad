package dedup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OnProducerConnect removes producer from inactiveProducers (spec §4.3).
func (e *Engine) OnProducerConnect(producer string) {
	e.registryMu.Lock()
	delete(e.inactiveProducers, producer)
	e.registryMu.Unlock()
}

// OnProducerDisconnect marks producer inactive as of now, unless dedup is
// not enabled (spec §4.3: "no-op when dedup is disabled").
func (e *Engine) OnProducerDisconnect(producer string) {
	if e.Status() != Enabled {
		return
	}
	e.registryMu.Lock()
	e.inactiveProducers[producer] = time.Now()
	e.registryMu.Unlock()
}

// Purge implements spec §4.2.8: producers inactive since before
// now-InactivityTimeout are dropped from every map the engine owns. Any
// removal while Enabled forces an out-of-band snapshot at the cursor's
// current mark-delete position, so the next recovery's replay starts from
// a memory footprint that has already shed the purged producers.
func (e *Engine) Purge(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-e.cfg.InactivityTimeout)

	var removed []string
	e.registryMu.Lock()
	for name, lastActive := range e.inactiveProducers {
		if lastActive.Before(cutoff) {
			removed = append(removed, name)
			delete(e.inactiveProducers, name)
		}
	}
	e.registryMu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	e.pushedMu.Lock()
	for _, name := range removed {
		delete(e.pushed, name)
		delete(e.pushed, lidKey(name))
		delete(e.pushed, eidKey(name))
	}
	e.pushedMu.Unlock()

	for _, name := range removed {
		e.persisted.Delete(name)
		e.persisted.Delete(lidKey(name))
		e.persisted.Delete(eidKey(name))
	}

	e.logger.Info("purged inactive producers",
		zap.String("topic", e.topic), zap.Int("count", len(removed)))

	if e.Status() != Enabled {
		return nil
	}

	cur := e.getCursor()
	if cur == nil {
		return nil
	}
	return e.takeSnapshot(ctx, cur.MarkDeletedPosition(), true)
}
