package ledger

import (
	"context"
	"errors"
)

// Sentinel errors for log and cursor operations.
var (
	// ErrCursorNotFound indicates a cursor name has no open cursor. Callers
	// deleting a cursor should treat this as success (spec §7).
	ErrCursorNotFound = errors.New("ledger: cursor not found")

	// ErrCursorExists signals a cursor-creation conflict. Neither MemoryLog
	// nor FileLog returns it: their OpenCursor returns the already-open
	// cursor for an existing name.
	ErrCursorExists = errors.New("ledger: cursor already exists")

	// ErrLogClosed indicates the log has been closed.
	ErrLogClosed = errors.New("ledger: log is closed")
)

// Entry is a single durable record in the log, as handed to a ReplayRange
// handler or read back by a cursor's consumer.
type Entry struct {
	Position Position
	Payload  []byte
}

// Properties is the snapshot payload carried by a cursor: producer name (or
// the "<name>_LID"/"<name>_EID" synthetic keys for repl-v2 producers) to
// highest observed sequence id.
type Properties map[string]int64

// Cursor is a named, durable (position, properties) pair. The position is
// the mark-delete watermark; properties is the most recently written
// snapshot.
type Cursor interface {
	// Name returns the cursor's name.
	Name() string

	// MarkDeletedPosition returns the cursor's current watermark.
	MarkDeletedPosition() Position

	// Properties returns a copy of the cursor's last-written properties.
	Properties() Properties
}

// Log is the append-only, cursor-bearing durable store that the
// deduplication engine treats as an external collaborator (spec §6).
type Log interface {
	// Append durably appends payload and returns its assigned position.
	// Positions are strictly increasing across successive calls.
	Append(ctx context.Context, payload []byte) (Position, error)

	// OpenCursor opens the named cursor, creating it at ZeroPosition with
	// empty properties if it does not already exist. Cursors persist
	// across process restarts when the log is backed by durable storage.
	OpenCursor(ctx context.Context, name string) (Cursor, error)

	// DeleteCursor removes the named cursor. Returns nil (not
	// ErrCursorNotFound) if the cursor does not exist — deletion is
	// idempotent per spec §6/§7.
	DeleteCursor(ctx context.Context, name string) error

	// MarkDelete atomically advances the cursor's watermark to pos and
	// replaces its properties with props.
	MarkDelete(ctx context.Context, cursorName string, pos Position, props Properties) error

	// ReplayRange invokes handler for every entry from the cursor's current
	// mark-delete position (exclusive) through the log's tail (inclusive),
	// in log order. Returns the last position visited, or ZeroPosition if
	// no entries were replayed.
	ReplayRange(ctx context.Context, cursorName string, handler func(Entry) error) (Position, error)

	// LastConfirmedPosition returns the position of the most recently
	// durably appended entry, or ZeroPosition if the log is empty.
	LastConfirmedPosition() Position

	// Close releases resources held by the log.
	Close() error
}
