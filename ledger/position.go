// Package ledger provides the append-only log abstraction that the
// deduplication engine replays and snapshots against, plus two concrete
// adapters (in-memory and file-backed) for testing and standalone operation.
package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is an opaque, totally ordered coordinate in the log: a
// (segmentID, offsetInSegment) pair. The string form is zero-padded so
// lexicographic and numeric ordering agree.
type Position struct {
	SegmentID        uint64
	OffsetInSegment  uint64
}

// ZeroPosition is the position before any entry has been appended.
var ZeroPosition = Position{}

func (p Position) String() string {
	return fmt.Sprintf("%020d_%020d", p.SegmentID, p.OffsetInSegment)
}

// IsZero reports whether this is the starting position.
func (p Position) IsZero() bool {
	return p.SegmentID == 0 && p.OffsetInSegment == 0
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func Compare(a, b Position) int {
	if a.SegmentID != b.SegmentID {
		if a.SegmentID < b.SegmentID {
			return -1
		}
		return 1
	}
	if a.OffsetInSegment != b.OffsetInSegment {
		if a.OffsetInSegment < b.OffsetInSegment {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether p < other.
func (p Position) Less(other Position) bool { return Compare(p, other) < 0 }

// LessOrEqual reports whether p <= other.
func (p Position) LessOrEqual(other Position) bool { return Compare(p, other) <= 0 }

// Equal reports whether p == other.
func (p Position) Equal(other Position) bool { return Compare(p, other) == 0 }

// ParsePosition parses the string form produced by Position.String.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return ZeroPosition, nil
	}
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("ledger: invalid position format %q", s)
	}
	segID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("ledger: invalid segment id in %q: %w", s, err)
	}
	off, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("ledger: invalid segment offset in %q: %w", s, err)
	}
	return Position{SegmentID: segID, OffsetInSegment: off}, nil
}
