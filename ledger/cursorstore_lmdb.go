package ledger

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/PowerDNS/lmdb-go/lmdb"
)

// LMDBCursorStore is an alternate CursorStore backend, adapted from the
// teacher's LMDBMetadataStore. Operators who already run LMDB-backed
// services elsewhere can point FileLog at this instead of bbolt without
// changing anything above the CursorStore interface.
type LMDBCursorStore struct {
	env    *lmdb.Env
	dbi    lmdb.DBI
	mu     sync.RWMutex
	closed bool
}

// NewLMDBCursorStore opens (creating if necessary) an LMDB environment
// rooted at dataDir, with a single named database holding cursor records.
func NewLMDBCursorStore(dataDir string) (*LMDBCursorStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create lmdb data dir: %w", err)
	}

	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("ledger: create lmdb environment: %w", err)
	}
	if err := env.SetMapSize(1 << 30); err != nil {
		env.Close()
		return nil, fmt.Errorf("ledger: set lmdb map size: %w", err)
	}
	if err := env.SetMaxDBs(1); err != nil {
		env.Close()
		return nil, fmt.Errorf("ledger: set lmdb max dbs: %w", err)
	}
	if err := env.Open(dataDir, 0, 0o755); err != nil {
		env.Close()
		return nil, fmt.Errorf("ledger: open lmdb environment: %w", err)
	}

	var dbi lmdb.DBI
	err = env.Update(func(txn *lmdb.Txn) error {
		var err error
		dbi, err = txn.OpenDBI("cursors", lmdb.Create)
		return err
	})
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("ledger: open lmdb cursors database: %w", err)
	}

	return &LMDBCursorStore{env: env, dbi: dbi}, nil
}

// Load implements CursorStore.
func (s *LMDBCursorStore) Load(name string) (*persistedCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrLogClosed
	}

	var rec *persistedCursor
	err := s.env.View(func(txn *lmdb.Txn) error {
		data, err := txn.Get(s.dbi, []byte(name))
		if lmdb.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
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
func (s *LMDBCursorStore) Save(name string, rec *persistedCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLogClosed
	}

	data, err := marshalCursor(rec)
	if err != nil {
		return err
	}

	// LMDB write transactions must run on a locked OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	return s.env.Update(func(txn *lmdb.Txn) error {
		return txn.Put(s.dbi, []byte(name), data, 0)
	})
}

// Delete implements CursorStore.
func (s *LMDBCursorStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrLogClosed
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := s.env.Update(func(txn *lmdb.Txn) error {
		return txn.Del(s.dbi, []byte(name), nil)
	})
	if lmdb.IsNotFound(err) {
		return nil
	}
	return err
}

// List implements CursorStore.
func (s *LMDBCursorStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrLogClosed
	}

	var names []string
	err := s.env.View(func(txn *lmdb.Txn) error {
		cur, err := txn.OpenCursor(s.dbi)
		if err != nil {
			return err
		}
		defer cur.Close()

		for {
			k, _, err := cur.Get(nil, nil, lmdb.Next)
			if lmdb.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			names = append(names, string(k))
		}
	})
	return names, err
}

// Close implements CursorStore.
func (s *LMDBCursorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.env.Close()
	return nil
}
