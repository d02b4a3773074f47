package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteTable = "entries"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// SQLiteStore keeps one row per key in a SQLite database
type SQLiteStore struct {
	db       *sql.DB
	sq       squirrel.StatementBuilderType
	timeFunc func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dsn. Use ":memory:" for
// a private in-memory database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("storage: sqlite store requires a data source name")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	// Busy timeout first so a second process waits instead of failing
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil && !strings.Contains(err.Error(), "database is locked") {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to enable WAL: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:       db,
		sq:       squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		timeFunc: time.Now,
	}, nil
}

// Load implements Store.Load
func (s *SQLiteStore) Load(key string) ([]byte, bool, error) {
	query, args, err := s.sq.Select("value").From(sqliteTable).Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return nil, false, s.wrap("load", key, err)
	}

	var data []byte
	err = s.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.wrap("load", key, err)
	}
	return data, true, nil
}

// Save implements Store.Save
func (s *SQLiteStore) Save(key string, data []byte) error {
	now := s.timeFunc().UTC().Format(time.RFC3339Nano)
	query, args, err := s.sq.Insert(sqliteTable).
		Columns("key", "value", "created_at", "updated_at").
		Values(key, data, now, now).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return s.wrap("save", key, err)
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		return s.wrap("save", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexicographic order
func (s *SQLiteStore) Keys() ([]string, error) {
	query, args, err := s.sq.Select("key").From(sqliteTable).OrderBy("key").ToSql()
	if err != nil {
		return nil, s.wrap("list", "", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, s.wrap("list", "", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.wrap("list", "", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close implements Store.Close
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) wrap(op, key string, err error) error {
	if strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	if key == "" {
		return fmt.Errorf("storage: sqlite %s: %w", op, err)
	}
	return fmt.Errorf("storage: sqlite %s %q: %w", op, key, err)
}
