package metadata

import (
	"bytes"
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	meta := Entry{
		ProducerName:      "alpha",
		SequenceId:        7,
		HighestSequenceId: 9,
		ChunkId:           1,
		NumChunks:         3,
		Properties:        map[string]string{ReplSourcePositionKey: "1:2"},
	}
	payload := []byte("hello world")

	data, err := Encode(meta, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	gotMeta, gotPayload, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(gotMeta, meta) {
		t.Fatalf("Decode meta = %+v, want %+v", gotMeta, meta)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("Decode payload = %q, want %q", gotPayload, payload)
	}
}
