package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Constants for file locking
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// fileData is the on-disk layout: every key's blob in one JSON document
type fileData struct {
	Entries  map[string]string `json:"entries"`
	Metadata Metadata          `json:"metadata"`
}

// JSONFileStore keeps all keys in a single JSON file. Every operation takes a
// cross-process file lock and re-reads the file, so several processes can
// share one store. Writes go to a temp file that is renamed into place.
type JSONFileStore struct {
	path        string
	fs          FileSystem
	lockFactory FileLockFactory
	fileLock    FileLock
	lockManager *LockManager
	logger      *slog.Logger
	timeFunc    func() time.Time
	closed      bool
}

// JSONFileStoreOption configures a JSONFileStore
type JSONFileStoreOption func(*JSONFileStore)

// WithFileSystem sets a custom FileSystem implementation
func WithFileSystem(fs FileSystem) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.fs = fs
	}
}

// WithFileLockFactory sets a custom FileLockFactory implementation
func WithFileLockFactory(factory FileLockFactory) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.lockFactory = factory
	}
}

// WithTimeFunc sets the clock used for metadata timestamps
func WithTimeFunc(fn func() time.Time) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.timeFunc = fn
	}
}

// WithLogger sets the logger used for recovery warnings
func WithLogger(logger *slog.Logger) JSONFileStoreOption {
	return func(s *JSONFileStore) {
		s.logger = logger
	}
}

// NewJSONFileStore creates a store backed by the JSON file at path.
// The file is created on first save.
func NewJSONFileStore(path string, opts ...JSONFileStoreOption) (*JSONFileStore, error) {
	if path == "" {
		return nil, errors.New("storage: json store requires a file path")
	}

	s := &JSONFileStore{
		path:        path,
		lockManager: NewLockManager(),
		timeFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = OSFileSystem{}
	}
	if s.lockFactory == nil {
		s.lockFactory = FlockFactory{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: failed to create directory %s: %w", dir, err)
		}
	}
	s.fileLock = s.lockFactory.New(path + ".lock")

	return s, nil
}

// Path returns the backing file path
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load implements Store.Load. A file that cannot be parsed yields ErrCorrupt.
func (s *JSONFileStore) Load(key string) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	// One file lock is shared by the store's goroutines, so even reads are
	// exclusive in-process
	err := s.lockManager.Execute(WriteOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		return s.withFileLock(func() error {
			contents, err := s.read()
			if err != nil {
				return err
			}
			var entry string
			entry, ok = contents.Entries[key]
			if ok {
				data = []byte(entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return data, ok, nil
}

// Save implements Store.Save. A corrupt file is moved aside to
// <path>.corrupt and replaced by a fresh one.
func (s *JSONFileStore) Save(key string, data []byte) error {
	return s.lockManager.Execute(WriteOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		return s.withFileLock(func() error {
			contents, err := s.read()
			if errors.Is(err, ErrCorrupt) {
				aside := s.path + ".corrupt"
				s.logger.Warn("moving corrupt store file aside", "path", s.path, "moved_to", aside, "error", err)
				if err := s.fs.Rename(s.path, aside); err != nil {
					return fmt.Errorf("storage: failed to move corrupt file: %w", err)
				}
				contents, err = s.empty(), nil
			}
			if err != nil {
				return err
			}

			contents.Entries[key] = string(data)
			return s.write(contents)
		})
	})
}

// Keys implements Lister
func (s *JSONFileStore) Keys() ([]string, error) {
	var keys []string
	err := s.lockManager.Execute(WriteOperation, func() error {
		if s.closed {
			return ErrClosed
		}
		return s.withFileLock(func() error {
			contents, err := s.read()
			if err != nil {
				return err
			}
			for key := range contents.Entries {
				keys = append(keys, key)
			}
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}

// Close releases the lock file. Further operations return ErrClosed.
func (s *JSONFileStore) Close() error {
	return s.lockManager.Execute(WriteOperation, func() error {
		if s.closed {
			return nil
		}
		s.closed = true
		_ = s.fs.Remove(s.path + ".lock")
		return nil
	})
}

// withFileLock runs fn holding the cross-process lock
func (s *JSONFileStore) withFileLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// acquireLock attempts to acquire the file lock with retry logic
func (s *JSONFileStore) acquireLock(ctx context.Context) error {
	for i := 0; i < lockMaxRetries; i++ {
		locked, err := s.fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("storage: failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("storage: failed to acquire lock: %w", ctx.Err())
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("storage: failed to acquire lock after %d attempts", lockMaxRetries)
}

func (s *JSONFileStore) empty() *fileData {
	now := s.timeFunc()
	return &fileData{
		Entries: make(map[string]string),
		Metadata: Metadata{
			Version:   formatVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// read loads the file; caller holds the file lock
func (s *JSONFileStore) read() (*fileData, error) {
	if _, err := s.fs.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return s.empty(), nil
	}

	raw, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return s.empty(), nil
	}

	var contents fileData
	if err := json.Unmarshal(raw, &contents); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if contents.Entries == nil {
		contents.Entries = make(map[string]string)
	}
	return &contents, nil
}

// write saves the file atomically; caller holds the file lock
func (s *JSONFileStore) write(contents *fileData) error {
	contents.Metadata.UpdatedAt = s.timeFunc()
	if contents.Metadata.Version == "" {
		contents.Metadata.Version = formatVersion
	}

	raw, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: failed to marshal JSON: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := s.fs.WriteFile(tmpFile, raw, 0o644); err != nil {
		return fmt.Errorf("storage: failed to write temp file: %w", err)
	}
	if err := s.fs.Rename(tmpFile, s.path); err != nil {
		_ = s.fs.Remove(tmpFile)
		return fmt.Errorf("storage: failed to rename file: %w", err)
	}
	return nil
}
