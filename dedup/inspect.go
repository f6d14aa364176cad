package dedup

import "time"

// PushedSeq returns the current pushed[key] value and whether it is
// present. Exported for tests and operational introspection; the engine
// itself never needs to read this from outside its own critical sections.
func (e *Engine) PushedSeq(key string) (int64, bool) {
	e.pushedMu.Lock()
	defer e.pushedMu.Unlock()
	v, ok := e.pushed[key]
	return v, ok
}

// PersistedSeq returns the current persisted[key] value and whether it is
// present.
func (e *Engine) PersistedSeq(key string) (int64, bool) {
	return e.persisted.Load(key)
}

// InactiveProducers returns a snapshot copy of the inactive-producer set.
func (e *Engine) InactiveProducers() map[string]time.Time {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	out := make(map[string]time.Time, len(e.inactiveProducers))
	for k, v := range e.inactiveProducers {
		out[k] = v
	}
	return out
}

// SnapshotCount returns the number of entries in the most recent snapshot
// that would be produced right now, bounded by MaxNumberOfProducers. Used
// by tests asserting the bounded-state invariant (spec §8).
func (e *Engine) SnapshotCount() int {
	return len(e.persisted.SortedSnapshot(e.cfg.MaxNumberOfProducers))
}
