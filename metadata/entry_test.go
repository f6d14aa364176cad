package metadata

import "testing"

func TestEffectiveHighestSequenceId(t *testing.T) {
	cases := []struct {
		seq, highest, want int64
	}{
		{5, 0, 5},
		{5, 9, 9},
		{5, 5, 5},
		{0, 0, 0},
	}
	for _, tc := range cases {
		e := Entry{SequenceId: tc.seq, HighestSequenceId: tc.highest}
		if got := e.EffectiveHighestSequenceId(); got != tc.want {
			t.Errorf("EffectiveHighestSequenceId(seq=%d,highest=%d) = %d, want %d", tc.seq, tc.highest, got, tc.want)
		}
	}
}

func TestIsChunkedAndLastChunk(t *testing.T) {
	// NumChunks <= 1 behaves as non-chunked, per spec boundary behavior.
	nonChunked := Entry{NumChunks: 1}
	if nonChunked.IsChunked() {
		t.Error("NumChunks=1 should not be chunked")
	}
	if !nonChunked.IsLastChunk() {
		t.Error("non-chunked entry is always its own last chunk")
	}

	middle := Entry{NumChunks: 3, ChunkId: 1}
	if !middle.IsChunked() {
		t.Error("NumChunks=3 should be chunked")
	}
	if middle.IsLastChunk() {
		t.Error("chunk 1 of 3 is not the last chunk")
	}

	last := Entry{NumChunks: 3, ChunkId: 2}
	if !last.IsLastChunk() {
		t.Error("chunk 2 of 3 should be the last chunk")
	}
}

func TestIsMarker(t *testing.T) {
	if (Entry{MarkerType: 0}).IsMarker() {
		t.Error("marker type 0 should not be a replication marker")
	}
	if !(Entry{MarkerType: 1}).IsMarker() {
		t.Error("marker type 1 should be a replication marker")
	}
}
