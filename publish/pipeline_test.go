package publish

import (
	"context"
	"testing"
	"time"

	"github.com/durabroker/broker/dedup"
	"github.com/durabroker/broker/ledger"
	"github.com/durabroker/broker/metadata"
	"github.com/durabroker/broker/workerpool"
)

func newTestPipeline(t *testing.T, replicatorPrefix string) (*Pipeline, ledger.Log, *dedup.Engine) {
	t.Helper()
	log := ledger.NewMemoryLog()
	pool := workerpool.New(8, nil)
	cfg := dedup.Config{
		SnapshotInterval:     1000,
		MaxNumberOfProducers: 1000,
		InactivityTimeout:    time.Hour,
	}
	engine := dedup.New("test-topic", log, pool, cfg, nil)
	ctx := context.Background()
	if err := engine.CheckStatus(ctx, true); err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	waitForEnabled(t, engine, time.Second)

	p := NewPipeline("test-topic", log, engine, replicatorPrefix, nil)
	t.Cleanup(p.Close)
	return p, log, engine
}

func waitForEnabled(t *testing.T, e *dedup.Engine, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if e.Status() == dedup.Enabled {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine never reached Enabled, got %v", e.Status())
}

func TestPublishNormalAcceptsThenDuplicates(t *testing.T) {
	p, _, _ := newTestPipeline(t, "")
	ctx := context.Background()

	pc := PublishContext{ProducerName: "p1", SequenceId: 1, HighestSequenceId: 1}
	res, err := p.Publish(ctx, pc, []byte("hello"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Outcome != Accepted {
		t.Fatalf("first publish outcome = %v, want Accepted", res.Outcome)
	}

	res2, err := p.Publish(ctx, pc, []byte("hello"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res2.Outcome != Duplicate {
		t.Fatalf("replay outcome = %v, want Duplicate", res2.Outcome)
	}
}

func TestPublishSequentialAcceptsInSendOrder(t *testing.T) {
	p, _, _ := newTestPipeline(t, "")
	ctx := context.Background()

	for _, seq := range []int64{1, 2, 3} {
		res, err := p.Publish(ctx, PublishContext{ProducerName: "p1", SequenceId: seq, HighestSequenceId: seq}, []byte("x"))
		if err != nil {
			t.Fatalf("Publish seq %d: %v", seq, err)
		}
		if res.Outcome != Accepted {
			t.Fatalf("seq %d outcome = %v, want Accepted", seq, res.Outcome)
		}
	}
}

func TestPublishChunkedOnlyLastChunkClassifies(t *testing.T) {
	p, log, _ := newTestPipeline(t, "")
	ctx := context.Background()

	base := PublishContext{ProducerName: "p1", SequenceId: 5, HighestSequenceId: 5, NumChunks: 3}

	for chunkID := int32(0); chunkID < 2; chunkID++ {
		pc := base
		pc.ChunkId = chunkID
		res, err := p.Publish(ctx, pc, []byte("chunk"))
		if err != nil {
			t.Fatalf("Publish chunk %d: %v", chunkID, err)
		}
		if res.Outcome != Accepted {
			t.Fatalf("non-last chunk %d outcome = %v, want Accepted", chunkID, res.Outcome)
		}
	}

	last := base
	last.ChunkId = 2
	res, err := p.Publish(ctx, last, []byte("chunk"))
	if err != nil {
		t.Fatalf("Publish last chunk: %v", err)
	}
	if res.Outcome != Accepted {
		t.Fatalf("last chunk outcome = %v, want Accepted", res.Outcome)
	}

	// Republishing the last chunk of the same group must now classify it as
	// a duplicate, since only the last chunk ever updated pushed/persisted.
	dup, err := p.Publish(ctx, last, []byte("chunk"))
	if err != nil {
		t.Fatalf("Publish replayed last chunk: %v", err)
	}
	if dup.Outcome != Duplicate {
		t.Fatalf("replayed last chunk outcome = %v, want Duplicate", dup.Outcome)
	}

	if log.LastConfirmedPosition().IsZero() {
		t.Fatalf("expected entries to have been appended")
	}
}

func TestPublishMarkerSkipsClassification(t *testing.T) {
	p, _, engine := newTestPipeline(t, "")
	ctx := context.Background()

	res, err := p.Publish(ctx, PublishContext{ProducerName: "repl", MarkerType: 2}, []byte("marker"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Outcome != Accepted {
		t.Fatalf("marker outcome = %v, want Accepted", res.Outcome)
	}
	if _, ok := engine.PushedSeq("repl"); ok {
		t.Fatalf("marker must not touch pushed map")
	}
}

func TestPublishReplV1UsesOriginalIdentity(t *testing.T) {
	p, _, engine := newTestPipeline(t, "repl.")
	ctx := context.Background()

	pc := PublishContext{
		ProducerName:              "repl.cluster-b",
		OriginalProducerName:      "source-producer",
		OriginalSequenceId:        10,
		OriginalHighestSequenceId: 10,
	}
	res, err := p.Publish(ctx, pc, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Outcome != Accepted {
		t.Fatalf("outcome = %v, want Accepted", res.Outcome)
	}
	if v, ok := engine.PushedSeq("source-producer"); !ok || v != 10 {
		t.Fatalf("pushed[source-producer] = %d,%v, want 10,true", v, ok)
	}

	dup, err := p.Publish(ctx, pc, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dup.Outcome != Duplicate {
		t.Fatalf("replay outcome = %v, want Duplicate", dup.Outcome)
	}
}

func TestPublishReplV2OrderingAndMalformedFallback(t *testing.T) {
	p, _, engine := newTestPipeline(t, "repl.")
	ctx := context.Background()

	pc := PublishContext{
		ProducerName:                 "repl.cluster-b",
		SupportsReplDedupByLidAndEid: true,
		Properties:                   map[string]string{metadata.ReplSourcePositionKey: "5:10"},
	}
	res, err := p.Publish(ctx, pc, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Outcome != Accepted {
		t.Fatalf("outcome = %v, want Accepted", res.Outcome)
	}
	if v, ok := engine.PersistedSeq("repl.cluster-b_LID"); !ok || v != 5 {
		t.Fatalf("persisted LID = %d,%v, want 5,true", v, ok)
	}

	dup, err := p.Publish(ctx, pc, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dup.Outcome != Duplicate {
		t.Fatalf("replay outcome = %v, want Duplicate", dup.Outcome)
	}

	// A malformed source position falls back to repl-v1 semantics rather
	// than rejecting the publish.
	malformed := PublishContext{
		ProducerName:                 "repl.cluster-b",
		SupportsReplDedupByLidAndEid: true,
		OriginalProducerName:         "source-producer",
		OriginalSequenceId:           1,
		OriginalHighestSequenceId:    1,
		Properties:                   map[string]string{metadata.ReplSourcePositionKey: "not-a-position"},
	}
	res2, err := p.Publish(ctx, malformed, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res2.Outcome != Accepted {
		t.Fatalf("fallback outcome = %v, want Accepted", res2.Outcome)
	}
}

func TestPublishRejectedWhenNotEnabled(t *testing.T) {
	log := ledger.NewMemoryLog()
	pool := workerpool.New(8, nil)
	cfg := dedup.Config{SnapshotInterval: 1000, MaxNumberOfProducers: 1000, InactivityTimeout: time.Hour}
	engine := dedup.New("test-topic", log, pool, cfg, nil)
	p := NewPipeline("test-topic", log, engine, "", nil)
	defer p.Close()

	res, err := p.Publish(context.Background(), PublishContext{ProducerName: "p1", SequenceId: 1, HighestSequenceId: 1}, []byte("x"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Outcome != Rejected || res.RejectKind != RejectNotEnabled {
		t.Fatalf("outcome = %v/%v, want Rejected/DeduplicationNotEnabled", res.Outcome, res.RejectKind)
	}
}
