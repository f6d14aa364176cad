// Package registry routes producer connect/disconnect notifications to the
// owning topic's deduplication engine (spec §4.3). The inactive-producer
// set itself is not duplicated here: per spec §3's ownership rule the
// engine is the sole owner of inactiveProducers, pushed, and persisted, so
// this package is purely a topic-name lookup in front of
// dedup.Engine.OnProducerConnect/OnProducerDisconnect.
package registry

import (
	"fmt"
	"sync"
)

// Engine is the subset of dedup.Engine this package depends on, kept as an
// interface so registry has no import-time coupling to the dedup package's
// internals beyond this call surface.
type Engine interface {
	OnProducerConnect(producer string)
	OnProducerDisconnect(producer string)
}

// Registry maps topic name to the dedup engine that owns its producer
// activity state.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register associates topic with engine. Re-registering a topic replaces
// its prior association (used when a topic's engine is rebuilt, e.g. after
// a configuration reload).
func (r *Registry) Register(topic string, engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[topic] = engine
}

// Unregister removes topic's association entirely, e.g. on topic deletion.
func (r *Registry) Unregister(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, topic)
}

// Connect notifies topic's engine that producer is active (spec §4.3: "on
// connect, remove from inactiveProducers").
func (r *Registry) Connect(topic, producer string) error {
	e, err := r.lookup(topic)
	if err != nil {
		return err
	}
	e.OnProducerConnect(producer)
	return nil
}

// Disconnect notifies topic's engine that producer went idle (spec §4.3:
// "on disconnect, if dedup enabled, set inactiveProducers[P] = now()"; the
// engine itself is responsible for the enabled check and for clearing the
// map when it is disabled, since it owns the map being mutated).
func (r *Registry) Disconnect(topic, producer string) error {
	e, err := r.lookup(topic)
	if err != nil {
		return err
	}
	e.OnProducerDisconnect(producer)
	return nil
}

func (r *Registry) lookup(topic string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[topic]
	if !ok {
		return nil, fmt.Errorf("registry: topic %q is not registered", topic)
	}
	return e, nil
}
