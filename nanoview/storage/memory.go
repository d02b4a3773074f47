package storage

import "sort"

// MemoryStore keeps blobs in process memory. Nothing survives the process.
type MemoryStore struct {
	lockManager *LockManager
	entries     map[string][]byte
	closed      bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lockManager: NewLockManager(),
		entries:     make(map[string][]byte),
	}
}

// Load implements Store.Load
func (s *MemoryStore) Load(key string) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	err := s.lockManager.Execute(ReadOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		var stored []byte
		stored, ok = s.entries[key]
		if ok {
			data = append([]byte(nil), stored...)
		}
		return nil
	})
	return data, ok, err
}

// Save implements Store.Save
func (s *MemoryStore) Save(key string, data []byte) error {
	return s.lockManager.Execute(WriteOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		s.entries[key] = append([]byte(nil), data...)
		return nil
	})
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return s.lockManager.Execute(WriteOperation, func() error {
		s.closed = true
		return nil
	})
}

// Keys implements Lister
func (s *MemoryStore) Keys() ([]string, error) {
	var keys []string
	err := s.lockManager.Execute(ReadOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		for key := range s.entries {
			keys = append(keys, key)
		}
		return nil
	})
	sort.Strings(keys)
	return keys, err
}
