// Package publish implements the per-topic publish pipeline: annotate,
// classify, append, record-persisted, acknowledge (spec §4.1).
package publish

import "github.com/durabroker/broker/ledger"

// PublishContext carries everything about one in-flight publish that the
// pipeline needs: the wire-level identity (as seen by this broker — for a
// repl-v1 remote producer this is the *replicator's* name, already
// rewritten) plus, for repl-v1 messages, the original source-cluster
// producer identity the caller has already recovered from the message's
// wire metadata (parsing that wire format is out of scope here; only the
// already-extracted fields are modeled, per spec §1's client-protocol-framing
// non-goal).
type PublishContext struct {
	ProducerName      string
	SequenceId        int64
	HighestSequenceId int64

	ChunkId   int32
	NumChunks int32

	MarkerType int32

	// SupportsReplDedupByLidAndEid mirrors the connection flag of the same
	// name: whether this producer's messages carry repl-v2 source
	// positions the engine can classify by.
	SupportsReplDedupByLidAndEid bool

	// OriginalProducerName/OriginalSequenceId/OriginalHighestSequenceId are
	// only meaningful when this is a repl-v1 remote producer: the
	// source-cluster producer identity recovered from message metadata,
	// which the replicator rewrites before re-publishing here.
	OriginalProducerName      string
	OriginalSequenceId        int64
	OriginalHighestSequenceId int64

	// Properties is the message's property bag, consulted for
	// metadata.ReplSourcePositionKey.
	Properties map[string]string
}

func (pc PublishContext) chunked() bool {
	return pc.NumChunks > 1
}

func (pc PublishContext) isLastChunk() bool {
	if !pc.chunked() {
		return true
	}
	return pc.ChunkId == pc.NumChunks-1
}

// Outcome is the producer-visible result of a publish (spec §6).
type Outcome int

const (
	// Accepted means the message was durably appended.
	Accepted Outcome = iota
	// Duplicate means the sequence id is confirmed already persisted.
	Duplicate
	// Indeterminate means the producer must retry; the outcome of an
	// earlier attempt with this sequence id is not yet durable.
	Indeterminate
	// Rejected means a fault prevented the publish from completing.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "Accepted"
	case Duplicate:
		return "Duplicate"
	case Indeterminate:
		return "Indeterminate"
	case Rejected:
		return "Rejected"
	default:
		return "Invalid"
	}
}

// RejectKind enumerates the closed set of fault kinds spec §7 maps onto
// Rejected outcomes.
type RejectKind string

const (
	RejectLogAppendFailure RejectKind = "LogAppendFailure"
	RejectNotEnabled       RejectKind = "DeduplicationNotEnabled"
)

// Result is the outcome of one Publish call.
type Result struct {
	Outcome Outcome

	// Position is set when Outcome == Accepted.
	Position ledger.Position

	// LastKnownSequenceId is set when Outcome == Duplicate on the normal and
	// repl-v1 paths; a repl-v2 duplicate leaves it zero.
	LastKnownSequenceId int64

	// RejectKind is set when Outcome == Rejected.
	RejectKind RejectKind
}
