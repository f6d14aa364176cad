// Package metadata defines the message metadata contract carried in every
// append-log entry header, plus the parsing helpers the dedup engine and
// publish pipeline need to read it (spec §6).
package metadata

// ReplSourcePositionKey is the property key carrying a repl-v2 source
// ledger position, formatted "<lid>:<eid>".
const ReplSourcePositionKey = "__repl.source.position"

// Entry is the per-message metadata header stored alongside the payload in
// the append log. ProducerName/SequenceId are the producer-visible fields;
// for repl-v1 remote producers they hold the *source* producer's identity,
// rewritten by the replicator before reaching this broker.
type Entry struct {
	ProducerName      string
	SequenceId        int64
	HighestSequenceId int64
	ChunkId           int32
	NumChunks         int32
	MarkerType        int32
	Properties        map[string]string
}

// EffectiveHighestSequenceId returns max(SequenceId, HighestSequenceId), the
// H value used throughout classification (§4.2.1).
func (e Entry) EffectiveHighestSequenceId() int64 {
	if e.HighestSequenceId > e.SequenceId {
		return e.HighestSequenceId
	}
	return e.SequenceId
}

// IsChunked reports whether this entry is part of a multi-chunk message.
// NumChunks <= 1 is treated as non-chunked (spec §8 boundary behavior).
func (e Entry) IsChunked() bool {
	return e.NumChunks > 1
}

// IsLastChunk reports whether this entry is the final chunk of its group.
// Non-chunked entries are always their own last (and only) chunk.
func (e Entry) IsLastChunk() bool {
	if !e.IsChunked() {
		return true
	}
	return e.ChunkId == e.NumChunks-1
}

// IsMarker reports whether this entry's marker type falls in the reserved
// replication-marker range (spec §6).
func (e Entry) IsMarker() bool {
	return IsReplicationMarker(e.MarkerType)
}
