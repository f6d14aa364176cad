package ledger

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Segment file format (adapted from the teacher's store/segment.go):
//
//	[8-byte big-endian length][payload bytes]
//
// repeated, with no separators. Payloads are opaque to the segment layer;
// the publish pipeline's metadata lives inside them.

const (
	// lengthPrefixSize is the size of the length prefix in bytes.
	lengthPrefixSize = 8

	// maxPayloadSize bounds a single entry (64MB, matching the teacher's
	// segment format limit).
	maxPayloadSize = 64 * 1024 * 1024
)

var (
	// ErrPayloadTooLarge is returned when an append exceeds maxPayloadSize.
	ErrPayloadTooLarge = errors.New("ledger: payload too large")

	// ErrCorruptedSegment is returned when a segment file appears corrupted.
	ErrCorruptedSegment = errors.New("ledger: corrupted segment file")
)

func writeFramedMessage(w io.Writer, data []byte) (int, error) {
	if len(data) > maxPayloadSize {
		return 0, ErrPayloadTooLarge
	}
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))

	n, err := w.Write(lenBuf[:])
	if err != nil {
		return n, err
	}
	n2, err := w.Write(data)
	return n + n2, err
}

func readFramedMessage(r io.Reader) ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint64(lenBuf[:])
	if length > maxPayloadSize {
		return nil, ErrCorruptedSegment
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// segmentFileName is not used by FileLog, which stores each segment as a
// flat file named by its zero-padded id directly in the data directory.
const segmentFileName = "segment.log"

// createSegmentFile creates an empty segment file at path.
func createSegmentFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ledger: create segment file: %w", err)
	}
	return f.Close()
}

// scanSegment walks a segment file end to end and returns the byte offset
// of the last well-formed record boundary. Used during FileLog open to
// recover the true tail offset after an unclean shutdown — a truncated
// trailing record is silently dropped, matching the teacher's ScanSegment.
func scanSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var offset uint64

	for {
		var lenBuf [lengthPrefixSize]byte
		if _, err := io.ReadFull(reader, lenBuf[:]); err != nil {
			break
		}
		length := binary.BigEndian.Uint64(lenBuf[:])
		if length > maxPayloadSize {
			break
		}
		skipped, err := reader.Discard(int(length))
		if err != nil || uint64(skipped) != length {
			break
		}
		offset += uint64(lengthPrefixSize) + length
	}

	return offset, nil
}

// readEntriesFromFile reads every framed message in f starting at
// byteOffset through EOF, returning each payload paired with the byte
// offset immediately after it (used to build Entry.Position values during
// replay). f's handle is owned by the caller (typically a filePool) and is
// left open and unseeked beyond this call's own reads.
func readEntriesFromFile(f *os.File, byteOffset uint64) ([][]byte, []uint64, error) {
	if _, err := f.Seek(int64(byteOffset), io.SeekStart); err != nil {
		return nil, nil, err
	}
	reader := bufio.NewReaderSize(f, 64*1024)

	var payloads [][]byte
	var endOffsets []uint64
	cur := byteOffset

	for {
		data, err := readFramedMessage(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return payloads, endOffsets, err
		}
		cur += uint64(lengthPrefixSize + len(data))
		payloads = append(payloads, data)
		endOffsets = append(endOffsets, cur)
	}

	return payloads, endOffsets, nil
}
