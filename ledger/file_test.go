package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestFileLog(t *testing.T) *FileLog {
	t.Helper()
	dir := t.TempDir()
	store, err := NewBboltCursorStore(filepath.Join(dir, "cursors.db"))
	if err != nil {
		t.Fatalf("NewBboltCursorStore: %v", err)
	}
	log, err := NewFileLog(filepath.Join(dir, "segments"), store, 1024)
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestFileLogAppendAndReplay(t *testing.T) {
	log := newTestFileLog(t)
	ctx := context.Background()

	var appended []Position
	for i := 0; i < 20; i++ {
		pos, err := log.Append(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		appended = append(appended, pos)
	}

	if _, err := log.OpenCursor(ctx, "reader"); err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}

	var seen []byte
	last, err := log.ReplayRange(ctx, "reader", func(e Entry) error {
		seen = append(seen, e.Payload[0])
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayRange: %v", err)
	}
	if len(seen) != 20 {
		t.Fatalf("replayed %d entries, want 20", len(seen))
	}
	if !last.Equal(appended[len(appended)-1]) {
		t.Fatalf("last = %v, want %v", last, appended[len(appended)-1])
	}
}

// TestFileLogSmallSegmentsRoll forces multiple segment rolls (segment cap is
// 1024 bytes in newTestFileLog) and checks replay still sees every entry in
// order across segment boundaries.
func TestFileLogSmallSegmentsRoll(t *testing.T) {
	log := newTestFileLog(t)
	ctx := context.Background()

	payload := make([]byte, 100)
	const count = 50
	for i := 0; i < count; i++ {
		payload[0] = byte(i)
		if _, err := log.Append(ctx, append([]byte(nil), payload...)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if log.activeSegmentID <= 1 {
		t.Fatalf("expected multiple segments, active id = %d", log.activeSegmentID)
	}

	if _, err := log.OpenCursor(ctx, "reader"); err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}

	var seen []byte
	_, err := log.ReplayRange(ctx, "reader", func(e Entry) error {
		seen = append(seen, e.Payload[0])
		return nil
	})
	if err != nil {
		t.Fatalf("ReplayRange: %v", err)
	}
	if len(seen) != count {
		t.Fatalf("replayed %d entries, want %d", len(seen), count)
	}
	for i, b := range seen {
		if int(b) != i {
			t.Fatalf("entry %d has payload byte %d", i, b)
		}
	}
}

func TestFileLogCursorPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBboltCursorStore(filepath.Join(dir, "cursors.db"))
	if err != nil {
		t.Fatalf("NewBboltCursorStore: %v", err)
	}
	log, err := NewFileLog(filepath.Join(dir, "segments"), store, 0)
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}

	var last Position
	for i := 0; i < 5; i++ {
		pos, err := log.Append(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		last = pos
	}

	if _, err := log.OpenCursor(ctx, "durable-reader"); err != nil {
		t.Fatalf("OpenCursor: %v", err)
	}
	if err := log.MarkDelete(ctx, "durable-reader", last, Properties{"p1": 4}); err != nil {
		t.Fatalf("MarkDelete: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store2, err := NewBboltCursorStore(filepath.Join(dir, "cursors.db"))
	if err != nil {
		t.Fatalf("reopen NewBboltCursorStore: %v", err)
	}
	log2, err := NewFileLog(filepath.Join(dir, "segments"), store2, 0)
	if err != nil {
		t.Fatalf("reopen NewFileLog: %v", err)
	}
	defer log2.Close()

	cur, err := log2.OpenCursor(ctx, "durable-reader")
	if err != nil {
		t.Fatalf("reopen OpenCursor: %v", err)
	}
	if !cur.MarkDeletedPosition().Equal(last) {
		t.Fatalf("recovered mark = %v, want %v", cur.MarkDeletedPosition(), last)
	}
	if got := cur.Properties()["p1"]; got != 4 {
		t.Fatalf("recovered properties[p1] = %d, want 4", got)
	}
}

func TestFileLogReplayUnknownCursor(t *testing.T) {
	log := newTestFileLog(t)
	ctx := context.Background()

	_, err := log.ReplayRange(ctx, "missing", func(Entry) error { return nil })
	if !errors.Is(err, ErrCursorNotFound) {
		t.Fatalf("ReplayRange: got %v, want ErrCursorNotFound", err)
	}
}
