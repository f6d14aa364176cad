package dedup

import "context"

// Classification is the three-valued outcome of the dedup algorithms
// (spec §4.2.1-4.2.3).
type Classification int

const (
	// NotDup means pushed was advanced; the caller should proceed to append.
	NotDup Classification = iota
	// Dup means the sequence id is confirmed already persisted.
	Dup
	// Unknown means the sequence id was accepted for append but its
	// outcome is not yet durable; the producer must retry.
	Unknown
)

func (c Classification) String() string {
	switch c {
	case NotDup:
		return "NotDup"
	case Dup:
		return "Dup"
	case Unknown:
		return "Unknown"
	default:
		return "Invalid"
	}
}

// ClassifyNormal runs the local-producer classification algorithm
// (spec §4.2.1): producer name P, sequence id S, highest sequence id H.
func (e *Engine) ClassifyNormal(_ context.Context, producer string, seq, highest int64) (Classification, error) {
	if e.Status() != Enabled {
		return Unknown, ErrNotEnabled
	}
	h := effectiveHighest(seq, highest)

	e.pushedMu.Lock()
	defer e.pushedMu.Unlock()

	last, ok := e.pushed[producer]
	if ok && seq <= last {
		if persisted, pok := e.persisted.Load(producer); pok && seq <= persisted {
			return Dup, nil
		}
		return Unknown, nil
	}
	e.pushed[producer] = h
	return NotDup, nil
}

// ClassifyReplV1 is the repl-v1 classification path (spec §4.2.2): the
// same algorithm as ClassifyNormal, applied to the original producer
// name/sequence id recovered from message metadata rather than the
// replicator's own identity. The caller is responsible for that
// extraction; this function exists under its own name to mirror the
// spec's three named classification paths.
func (e *Engine) ClassifyReplV1(ctx context.Context, originalProducer string, originalSeq, originalHighest int64) (Classification, error) {
	return e.ClassifyNormal(ctx, originalProducer, originalSeq, originalHighest)
}

// ClassifyReplV2 runs the repl-v2 two-key classification algorithm
// (spec §4.2.3): the source ledger position (lid, eid) compared
// lexicographically against the last observed pair for producer.
func (e *Engine) ClassifyReplV2(_ context.Context, producer string, lid, eid int64) (Classification, error) {
	if e.Status() != Enabled {
		return Unknown, ErrNotEnabled
	}

	lk, ek := lidKey(producer), eidKey(producer)

	e.pushedMu.Lock()
	defer e.pushedMu.Unlock()

	lastL, lok := e.pushed[lk]
	lastE, eok := e.pushed[ek]

	if lok && eok && lexLessOrEqual(lid, eid, lastL, lastE) {
		persL, plok := e.persisted.Load(lk)
		persE, peok := e.persisted.Load(ek)
		if plok && peok && lexLessOrEqual(lid, eid, persL, persE) {
			return Dup, nil
		}
		return Unknown, nil
	}

	e.pushed[lk] = lid
	e.pushed[ek] = eid
	return NotDup, nil
}

func effectiveHighest(seq, highest int64) int64 {
	if highest > seq {
		return highest
	}
	return seq
}

// lexLessOrEqual reports whether (newL, newE) <= (lastL, lastE) in
// lexicographic order: ledger id first, entry id as tiebreaker.
func lexLessOrEqual(newL, newE, lastL, lastE int64) bool {
	if newL < lastL {
		return true
	}
	if newL == lastL && newE <= lastE {
		return true
	}
	return false
}
