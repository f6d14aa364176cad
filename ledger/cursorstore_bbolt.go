package ledger

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// cursorsBucket is the single bucket holding every cursor record, keyed by
// cursor name. Adapted from the teacher's BboltMetadataStore, which keeps
// one bucket per concern and JSON-encodes values.
var cursorsBucket = []byte("cursors")

// BboltCursorStore is a CursorStore backed by a single bbolt database file.
// This is the default FileLog backend: bbolt is the teacher's primary
// metadata store and needs no external services.
type BboltCursorStore struct {
	db *bolt.DB
}

// NewBboltCursorStore opens (creating if necessary) a bbolt database at path.
func NewBboltCursorStore(path string) (*BboltCursorStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bbolt cursor store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init bbolt cursor store: %w", err)
	}

	return &BboltCursorStore{db: db}, nil
}

// Load implements CursorStore.
func (s *BboltCursorStore) Load(name string) (*persistedCursor, error) {
	var rec *persistedCursor
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorsBucket)
		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}
		parsed, err := unmarshalCursor(data)
		if err != nil {
			return err
		}
		rec = parsed
		return nil
	})
	return rec, err
}

// Save implements CursorStore.
func (s *BboltCursorStore) Save(name string, rec *persistedCursor) error {
	data, err := marshalCursor(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorsBucket)
		return b.Put([]byte(name), data)
	})
}

// Delete implements CursorStore.
func (s *BboltCursorStore) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorsBucket)
		return b.Delete([]byte(name))
	})
}

// List implements CursorStore.
func (s *BboltCursorStore) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorsBucket)
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Close implements CursorStore.
func (s *BboltCursorStore) Close() error {
	return s.db.Close()
}
