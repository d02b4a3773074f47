// Package storage provides the persistence layer for nanoview collections.
// A Store maps a collection key to one opaque blob. Collections load their
// blob once at open and write the whole blob back after each mutation.
package storage

import (
	"errors"
	"fmt"
	"time"
)

// Store is the key/blob persistence interface shared by every backend.
// Load reports ok=false for a key that was never saved.
type Store interface {
	// Load reads the blob stored under key
	Load(key string) (data []byte, ok bool, err error)

	// Save replaces the blob stored under key
	Save(key string, data []byte) error

	// Close releases any resources held by the store
	Close() error
}

// Lister is implemented by stores that can enumerate their keys
type Lister interface {
	Keys() ([]string, error)
}

var (
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("storage: store is closed")

	// ErrCorrupt is returned when the backing file cannot be parsed
	ErrCorrupt = errors.New("storage: corrupt data")
)

// Metadata describes a persisted store file
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const formatVersion = "1.0"

// Backend names accepted by Open
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists the accepted backend names
func Backends() []string {
	return []string{BackendJSON, BackendSQLite, BackendMemory}
}

// Open creates a store for the named backend. location is a file path for
// json, a data source name for sqlite, and ignored for memory.
func Open(backend, location string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewJSONFileStore(location)
	case BackendSQLite:
		return NewSQLiteStore(location)
	case BackendMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("storage: unknown backend %q (available: %v)", backend, Backends())
}
