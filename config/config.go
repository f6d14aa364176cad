// Package config loads and validates the broker's deduplication knobs
// (spec §6) from environment variables, grounded on the corpus's
// cleanenv+validator Load[T] idiom.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// BrokerConfig carries the broker-wide defaults for every knob in spec §6's
// configuration table. Per-topic policy can override DeduplicationEnabled
// and SnapshotIntervalSeconds via TopicOverride (see Effective).
type BrokerConfig struct {
	// DeduplicationEnabled is brokerDeduplicationEnabled, the broker-wide
	// default for whether dedup should be enabled absent a per-topic
	// override.
	DeduplicationEnabled bool `env:"BROKER_DEDUPLICATION_ENABLED" env-default:"true"`

	// EntriesInterval is brokerDeduplicationEntriesInterval: the
	// count-based snapshot threshold, in persisted entries.
	EntriesInterval int64 `env:"BROKER_DEDUPLICATION_ENTRIES_INTERVAL" env-default:"1000" validate:"min=1"`

	// MaxNumberOfProducers is brokerDeduplicationMaxNumberOfProducers: the
	// cap on snapshot size.
	MaxNumberOfProducers int `env:"BROKER_DEDUPLICATION_MAX_NUMBER_OF_PRODUCERS" env-default:"10000" validate:"min=1"`

	// ProducerInactivityTimeoutMinutes is
	// brokerDeduplicationProducerInactivityTimeoutMinutes: the purge
	// cutoff, in minutes.
	ProducerInactivityTimeoutMinutes int `env:"BROKER_DEDUPLICATION_PRODUCER_INACTIVITY_TIMEOUT_MINUTES" env-default:"60" validate:"min=1"`

	// SnapshotIntervalSeconds is deduplicationSnapshotIntervalSeconds: the
	// time-based snapshot period. 0 or negative disables the time-based
	// trigger entirely.
	SnapshotIntervalSeconds int `env:"DEDUPLICATION_SNAPSHOT_INTERVAL_SECONDS" env-default:"120"`

	// ReplicatorPrefix is replicatorPrefix: the producer-name prefix used
	// to recognize remote (replicated) producers.
	ReplicatorPrefix string `env:"REPLICATOR_PREFIX" env-default:"pulsar.repl."`

	// WorkerPoolConcurrency bounds the shared recovery/snapshot worker pool
	// (spec §5); not part of spec §6's table but needed to construct one.
	WorkerPoolConcurrency int64 `env:"WORKER_POOL_CONCURRENCY" env-default:"16" validate:"min=1"`
}

// TopicDedupConfig is the effective, possibly topic-overridden policy
// actually handed to one topic's dedup.Engine and publish.Pipeline.
type TopicDedupConfig struct {
	Enabled                  bool
	EntriesInterval          int64
	MaxNumberOfProducers     int
	InactivityTimeoutMinutes int
	SnapshotIntervalSeconds  int
	ReplicatorPrefix         string
}

// Effective returns cfg's broker-wide defaults as a TopicDedupConfig, with
// any non-nil override fields applied on top.
func (cfg BrokerConfig) Effective(override TopicOverride) TopicDedupConfig {
	out := TopicDedupConfig{
		Enabled:                  cfg.DeduplicationEnabled,
		EntriesInterval:          cfg.EntriesInterval,
		MaxNumberOfProducers:     cfg.MaxNumberOfProducers,
		InactivityTimeoutMinutes: cfg.ProducerInactivityTimeoutMinutes,
		SnapshotIntervalSeconds:  cfg.SnapshotIntervalSeconds,
		ReplicatorPrefix:         cfg.ReplicatorPrefix,
	}
	if override.Enabled != nil {
		out.Enabled = *override.Enabled
	}
	if override.SnapshotIntervalSeconds != nil {
		out.SnapshotIntervalSeconds = *override.SnapshotIntervalSeconds
	}
	return out
}

// TopicOverride carries the subset of knobs spec §6 marks as per-topic
// overridable: brokerDeduplicationEnabled and
// deduplicationSnapshotIntervalSeconds.
type TopicOverride struct {
	Enabled                 *bool
	SnapshotIntervalSeconds *int
}

// Load reads BrokerConfig from environment variables (and a .env file, if
// present) and validates it.
func Load() (BrokerConfig, error) {
	var cfg BrokerConfig
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return BrokerConfig{}, fmt.Errorf("config: read environment: %w", err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return BrokerConfig{}, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}
