// Package memorystore provides an in-memory local storage for the offchain host.
//
// Values live only as long as the process; use badgerstore for persistence.
package memorystore

import (
	"github.com/go4org/hashtriemap"
)

// Store is an in-memory key/value store.
// Uses hashtriemap for lock-free reads and writes.
type Store struct {
	values hashtriemap.HashTrieMap[string, []byte]
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Set stores a copy of value under key.
func (s *Store) Set(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.values.Store(string(key), v)
	return nil
}

// Get returns a copy of the value under key.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	v, ok := s.values.Load(string(key))
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Close is a no-op; it exists so Store can stand in for persistent stores.
func (s *Store) Close() error {
	return nil
}
