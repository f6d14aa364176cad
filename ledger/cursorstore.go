package ledger

import "encoding/json"

// CursorStore persists cursor (mark-delete position, properties) pairs for
// FileLog. Two backends are provided: one on go.etcd.io/bbolt and one on
// PowerDNS/lmdb-go, adapted from the teacher's BboltMetadataStore and
// LMDBMetadataStore.
type CursorStore interface {
	// Load returns the persisted record for name, or (nil, nil) if absent.
	Load(name string) (*persistedCursor, error)

	// Save writes the record for name, overwriting any existing value.
	Save(name string, rec *persistedCursor) error

	// Delete removes the record for name. Idempotent.
	Delete(name string) error

	// List returns the names of all persisted cursors.
	List() ([]string, error)

	// Close releases the backing storage handle.
	Close() error
}

// persistedCursor is the on-disk representation of a cursor's durable state.
type persistedCursor struct {
	Mark  string           `json:"mark"`
	Props map[string]int64 `json:"props"`
}

func marshalCursor(rec *persistedCursor) ([]byte, error) {
	return json.Marshal(rec)
}

func unmarshalCursor(data []byte) (*persistedCursor, error) {
	var rec persistedCursor
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
