package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrNoSession is returned when nothing was saved yet
var ErrNoSession = errors.New("no saved session")

var sessionKey = []byte("session/current")

// SavedSession is what the app needs to resume without signing in again
type SavedSession struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	GroupID     string `json:"group_id,omitempty"`
}

// SessionStore keeps the signed-in session on the device
type SessionStore struct {
	db *badger.DB
}

// OpenSessionStore opens the store under dir. An empty dir keeps it in memory.
func OpenSessionStore(dir string) (*SessionStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return &SessionStore{db: db}, nil
}

// Close releases the store
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save replaces the saved session
func (s *SessionStore) Save(session SavedSession) error {
	val, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, val)
	})
}

// Load returns the saved session or ErrNoSession
func (s *SessionStore) Load() (*SavedSession, error) {
	var session SavedSession
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// Clear forgets the saved session
func (s *SessionStore) Clear() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey)
	})
}
