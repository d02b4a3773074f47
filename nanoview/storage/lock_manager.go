package storage

import (
	"sync"
)

// OperationType defines whether an operation is read or write
type OperationType int

const (
	// ReadOperation may run concurrently with other reads
	ReadOperation OperationType = iota

	// WriteOperation is exclusive
	WriteOperation
)

// LockManager serializes in-process access to a store's state.
// Cross-process exclusion is the file lock's job, not this one's.
type LockManager struct {
	mu *sync.RWMutex
}

// NewLockManager creates a new lock manager instance
func NewLockManager() *LockManager {
	return &LockManager{
		mu: &sync.RWMutex{},
	}
}

// Execute runs fn holding a read or write lock depending on opType.
//
// Example:
//
//	err := lm.Execute(ReadOperation, func() error {
//	    data, ok = s.entries[key]
//	    return nil
//	})
func (lm *LockManager) Execute(opType OperationType, fn func() error) error {
	switch opType {
	case ReadOperation:
		lm.mu.RLock()
		defer lm.mu.RUnlock()
	case WriteOperation:
		lm.mu.Lock()
		defer lm.mu.Unlock()
	}
	return fn()
}
