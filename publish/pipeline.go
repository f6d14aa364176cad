package publish

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/durabroker/broker/dedup"
	"github.com/durabroker/broker/ledger"
	"github.com/durabroker/broker/metadata"
)

// job is one queued publish, routed through the topic's single serial
// executor goroutine so that classification and append happen in the
// producer's send order (spec §4.1: "publishes for a topic are serialized").
type job struct {
	ctx     context.Context
	pubCtx  PublishContext
	payload []byte
	reply   chan jobResult
}

type jobResult struct {
	result Result
	err    error
}

// Pipeline drives one topic's publish path: annotate, classify, append,
// record-persisted. One Pipeline owns one topic's ledger.Log and
// dedup.Engine, and runs its own serial goroutine the way the teacher's
// store.MemoryStore lazily owns one lock per topic (here generalized to a
// single owning goroutine instead of a mutex, since the pipeline also needs
// to serialize log appends with classification).
type Pipeline struct {
	topic            string
	log              ledger.Log
	engine           *dedup.Engine
	logger           *zap.Logger
	replicatorPrefix string

	jobs   chan job
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

// NewPipeline constructs a Pipeline for topic and starts its serial
// executor goroutine. replicatorPrefix identifies remote producers whose
// messages should be treated as repl-v1/repl-v2 rather than local
// (replicatorPrefix configuration knob).
func NewPipeline(topic string, log ledger.Log, engine *dedup.Engine, replicatorPrefix string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		topic:            topic,
		log:              log,
		engine:           engine,
		logger:           logger,
		replicatorPrefix: replicatorPrefix,
		jobs:             make(chan job, 256),
		done:             make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Pipeline) run() {
	defer p.wg.Done()
	for {
		select {
		case j := <-p.jobs:
			res, err := p.process(j.ctx, j.pubCtx, j.payload)
			j.reply <- jobResult{result: res, err: err}
		case <-p.done:
			return
		}
	}
}

// Publish enqueues pubCtx/payload onto the topic's serial executor and
// blocks for its result.
func (p *Pipeline) Publish(ctx context.Context, pubCtx PublishContext, payload []byte) (Result, error) {
	reply := make(chan jobResult, 1)
	select {
	case p.jobs <- job{ctx: ctx, pubCtx: pubCtx, payload: payload, reply: reply}:
	case <-p.done:
		return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, fmt.Errorf("publish: pipeline for topic %q is closed", p.topic)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// process implements spec §4.1's full publish path for one message.
func (p *Pipeline) process(ctx context.Context, pc PublishContext, payload []byte) (Result, error) {
	if metadata.IsReplicationMarker(pc.MarkerType) {
		return p.appendOnly(ctx, pc, payload)
	}

	isRemote := p.replicatorPrefix != "" && strings.HasPrefix(pc.ProducerName, p.replicatorPrefix)

	if pc.chunked() && !pc.isLastChunk() {
		// Non-last chunks are durably appended but never classified; the
		// group's dedup outcome is decided entirely by its last chunk
		// (spec §4.1, scenario 5).
		pos, err := p.appendRaw(ctx, pc, payload, classificationIdentity{
			producer: pc.ProducerName, seq: pc.SequenceId, highest: pc.HighestSequenceId,
		})
		if err != nil {
			return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
		}
		return Result{Outcome: Accepted, Position: pos}, nil
	}

	if isRemote && pc.SupportsReplDedupByLidAndEid {
		lid, eid, ok := metadata.ParseReplSourcePosition(pc.Properties)
		if ok {
			return p.publishReplV2(ctx, pc, payload, lid, eid)
		}
		p.logger.Warn("malformed repl source position, falling back to repl-v1",
			zap.String("topic", p.topic), zap.String("producer", pc.ProducerName))
	}

	if isRemote {
		return p.publishReplV1(ctx, pc, payload)
	}

	return p.publishNormal(ctx, pc, payload)
}

func (p *Pipeline) publishNormal(ctx context.Context, pc PublishContext, payload []byte) (Result, error) {
	class, err := p.engine.ClassifyNormal(ctx, pc.ProducerName, pc.SequenceId, pc.HighestSequenceId)
	if err != nil {
		return rejectedForClassifyErr(err)
	}
	switch class {
	case dedup.Dup:
		return Result{Outcome: Duplicate, LastKnownSequenceId: pc.HighestSequenceId}, nil
	case dedup.Unknown:
		return Result{Outcome: Indeterminate}, nil
	}

	pos, err := p.appendRaw(ctx, pc, payload, classificationIdentity{
		producer: pc.ProducerName, seq: pc.SequenceId, highest: pc.HighestSequenceId,
	})
	if err != nil {
		return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
	}
	if err := p.engine.RecordPersistedNormal(ctx, pc.ProducerName, pc.SequenceId, pc.HighestSequenceId, pos); err != nil {
		p.logger.Warn("record-persisted failed after successful append",
			zap.String("topic", p.topic), zap.Error(err))
	}
	return Result{Outcome: Accepted, Position: pos}, nil
}

func (p *Pipeline) publishReplV1(ctx context.Context, pc PublishContext, payload []byte) (Result, error) {
	class, err := p.engine.ClassifyReplV1(ctx, pc.OriginalProducerName, pc.OriginalSequenceId, pc.OriginalHighestSequenceId)
	if err != nil {
		return rejectedForClassifyErr(err)
	}
	switch class {
	case dedup.Dup:
		return Result{Outcome: Duplicate, LastKnownSequenceId: pc.OriginalHighestSequenceId}, nil
	case dedup.Unknown:
		return Result{Outcome: Indeterminate}, nil
	}

	// The stored entry carries the source-cluster identity, not the
	// replicator's own name, so a future replay can classify it exactly as
	// this call just did (dedup.recover reads meta.ProducerName directly).
	pos, err := p.appendRaw(ctx, pc, payload, classificationIdentity{
		producer: pc.OriginalProducerName, seq: pc.OriginalSequenceId, highest: pc.OriginalHighestSequenceId,
	})
	if err != nil {
		return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
	}
	if err := p.engine.RecordPersistedNormal(ctx, pc.OriginalProducerName, pc.OriginalSequenceId, pc.OriginalHighestSequenceId, pos); err != nil {
		p.logger.Warn("record-persisted failed after successful append",
			zap.String("topic", p.topic), zap.Error(err))
	}
	return Result{Outcome: Accepted, Position: pos}, nil
}

func (p *Pipeline) publishReplV2(ctx context.Context, pc PublishContext, payload []byte, lid, eid int64) (Result, error) {
	class, err := p.engine.ClassifyReplV2(ctx, pc.ProducerName, lid, eid)
	if err != nil {
		return rejectedForClassifyErr(err)
	}
	switch class {
	case dedup.Dup:
		return Result{Outcome: Duplicate}, nil
	case dedup.Unknown:
		return Result{Outcome: Indeterminate}, nil
	}

	props := make(map[string]string, len(pc.Properties)+1)
	for k, v := range pc.Properties {
		props[k] = v
	}
	props[metadata.ReplSourcePositionKey] = strconv.FormatInt(lid, 10) + ":" + strconv.FormatInt(eid, 10)

	pos, err := p.appendEntry(ctx, metadata.Entry{
		ProducerName: pc.ProducerName,
		ChunkId:      pc.ChunkId,
		NumChunks:    pc.NumChunks,
		MarkerType:   pc.MarkerType,
		Properties:   props,
	}, payload)
	if err != nil {
		return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
	}
	if err := p.engine.RecordPersistedReplV2(ctx, pc.ProducerName, lid, eid, pos); err != nil {
		p.logger.Warn("record-persisted failed after successful append",
			zap.String("topic", p.topic), zap.Error(err))
	}
	return Result{Outcome: Accepted, Position: pos}, nil
}

// appendOnly durably appends a replication marker without any
// classification (spec §6: markers are exempt from deduplication).
func (p *Pipeline) appendOnly(ctx context.Context, pc PublishContext, payload []byte) (Result, error) {
	pos, err := p.appendEntry(ctx, metadata.Entry{
		ProducerName: pc.ProducerName,
		ChunkId:      pc.ChunkId,
		NumChunks:    pc.NumChunks,
		MarkerType:   pc.MarkerType,
		Properties:   pc.Properties,
	}, payload)
	if err != nil {
		return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
	}
	return Result{Outcome: Accepted, Position: pos}, nil
}

// classificationIdentity is the (producer, seq, highest) triple that should
// be stamped on the stored metadata.Entry so a later replay reclassifies
// identically to this call.
type classificationIdentity struct {
	producer string
	seq      int64
	highest  int64
}

func (p *Pipeline) appendRaw(ctx context.Context, pc PublishContext, payload []byte, id classificationIdentity) (ledger.Position, error) {
	return p.appendEntry(ctx, metadata.Entry{
		ProducerName:      id.producer,
		SequenceId:        id.seq,
		HighestSequenceId: id.highest,
		ChunkId:           pc.ChunkId,
		NumChunks:         pc.NumChunks,
		MarkerType:        pc.MarkerType,
		Properties:        pc.Properties,
	}, payload)
}

func (p *Pipeline) appendEntry(ctx context.Context, meta metadata.Entry, payload []byte) (ledger.Position, error) {
	encoded, err := metadata.Encode(meta, payload)
	if err != nil {
		return ledger.ZeroPosition, err
	}
	return p.log.Append(ctx, encoded)
}

func rejectedForClassifyErr(err error) (Result, error) {
	if err == dedup.ErrNotEnabled {
		return Result{Outcome: Rejected, RejectKind: RejectNotEnabled}, nil
	}
	return Result{Outcome: Rejected, RejectKind: RejectLogAppendFailure}, nil
}

// OnProducerConnect notifies the engine that producer is active (spec §4.3).
func (p *Pipeline) OnProducerConnect(producer string) {
	p.engine.OnProducerConnect(producer)
}

// OnProducerDisconnect notifies the engine that producer went idle.
func (p *Pipeline) OnProducerDisconnect(producer string) {
	p.engine.OnProducerDisconnect(producer)
}

// UpdateConfiguration re-evaluates the engine's enabled/disabled state.
func (p *Pipeline) UpdateConfiguration(ctx context.Context, shouldBeEnabled bool) error {
	return p.engine.CheckStatus(ctx, shouldBeEnabled)
}

// Close stops the pipeline's executor goroutine and waits for it to exit.
func (p *Pipeline) Close() {
	p.closed.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
