package dedup

import (
	"errors"
	"fmt"
)

// Sentinel errors, grounded on packages/client-go/errors.go's sentinel-var
// convention.
var (
	// ErrNotEnabled is returned by classification and record-persisted
	// calls made while the engine is not in the Enabled state.
	ErrNotEnabled = errors.New("dedup: engine is not enabled")

	// ErrCursorNotFound mirrors ledger.ErrCursorNotFound for callers that
	// only import this package.
	ErrCursorNotFound = errors.New("dedup: recovery cursor not found")
)

// EngineError wraps a failure that occurred while operating topic's engine,
// pairing the failing operation with the underlying cause. Modeled on
// packages/client-go/errors.go's StreamError.
type EngineError struct {
	Topic string
	Op    string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("dedup: topic %q: %s: %v", e.Topic, e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func newEngineError(topic, op string, err error) *EngineError {
	return &EngineError{Topic: topic, Op: op, Err: err}
}
