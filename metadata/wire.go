package metadata

import "encoding/json"

// Envelope is the on-log-entry representation: the metadata header plus the
// opaque message body, JSON-encoded before being handed to ledger.Log.Append.
// JSON mirrors the corpus's own convention for framed/stored records
// (store/bbolt.go, store/lmdb.go serialize everything through
// encoding/json); there is no wire-compatibility requirement to a binary
// protocol since client protocol framing is explicitly out of scope.
type Envelope struct {
	Meta    Entry  `json:"meta"`
	Payload []byte `json:"payload"`
}

// Encode marshals an envelope for durable storage.
func Encode(meta Entry, payload []byte) ([]byte, error) {
	return json.Marshal(Envelope{Meta: meta, Payload: payload})
}

// Decode reverses Encode.
func Decode(data []byte) (Entry, []byte, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Entry{}, nil, err
	}
	return env.Meta, env.Payload, nil
}
