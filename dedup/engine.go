// Package dedup implements the per-topic deduplication engine: the
// pushed/persisted sequence-id maps, the status state machine, crash
// recovery via log replay, periodic snapshotting, and purge of inactive
// producers (spec §4.2).
package dedup

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/durabroker/broker/ledger"
	"github.com/durabroker/broker/workerpool"
)

// defaultCursorName is the recovery cursor every topic's engine opens on
// enable. One engine owns exactly one topic, so a fixed name is enough —
// the topic identity lives in the Log/CursorStore's own namespacing.
const defaultCursorName = "dedup-recovery"

// Config carries the per-topic tunables from spec §6's configuration
// table that the engine itself consults (snapshot cadence and bounds,
// purge cutoff). ReplicatorPrefix and the time-based snapshot period live
// one layer up, in the publish and scheduler packages respectively.
type Config struct {
	// SnapshotInterval is the count-based snapshot threshold: after this
	// many persisted entries, a snapshot fires (brokerDeduplicationEntriesInterval).
	SnapshotInterval int64

	// MaxNumberOfProducers bounds snapshot size (brokerDeduplicationMaxNumberOfProducers).
	MaxNumberOfProducers int

	// InactivityTimeout is the purge cutoff (brokerDeduplicationProducerInactivityTimeoutMinutes).
	InactivityTimeout time.Duration
}

// Engine is the per-topic deduplication state machine. One Engine instance
// owns one topic's pushed/persisted maps, recovery cursor, and inactive
// producer set (spec §3 Ownership).
type Engine struct {
	topic      string
	logger     *zap.Logger
	cfg        Config
	log        ledger.Log
	pool       *workerpool.Pool
	cursorName string

	statusMu sync.Mutex
	status   atomic.Int32

	cursorMu sync.RWMutex
	cursor   ledger.Cursor

	pushedMu sync.Mutex
	pushed   map[string]int64

	persisted *shardedMap

	snapshotTaking  atomic.Bool
	snapshotCounter atomic.Int64
	lastSnapshotAt  atomic.Int64 // UnixNano; 0 means never snapshotted

	registryMu        sync.Mutex
	inactiveProducers map[string]time.Time
}

// New constructs an Engine for topic in the Initialized state. Nothing is
// opened or replayed until the first CheckStatus call.
func New(topic string, log ledger.Log, pool *workerpool.Pool, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		topic:             topic,
		logger:            logger,
		cfg:               cfg,
		log:               log,
		pool:              pool,
		cursorName:        defaultCursorName,
		pushed:            make(map[string]int64),
		persisted:         newShardedMap(),
		inactiveProducers: make(map[string]time.Time),
	}
	e.status.Store(int32(Initialized))
	return e
}

// Topic returns the topic name this engine owns.
func (e *Engine) Topic() string { return e.topic }

// Status returns the engine's current lifecycle state.
func (e *Engine) Status() Status {
	return Status(e.status.Load())
}

func (e *Engine) getCursor() ledger.Cursor {
	e.cursorMu.RLock()
	defer e.cursorMu.RUnlock()
	return e.cursor
}

func (e *Engine) setCursor(c ledger.Cursor) {
	e.cursorMu.Lock()
	e.cursor = c
	e.cursorMu.Unlock()
}

func lidKey(producer string) string { return producer + "_LID" }
func eidKey(producer string) string { return producer + "_EID" }
