package storage

import (
	"context"
	"fmt"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteStore persists notification state in a single-table sqlite database
// so the dedupe window survives process restarts.
type SQLiteStore struct {
	mu   sync.Mutex
	conn *sqlite.Conn
}

// OpenSQLite opens (creating if necessary) the state database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	err = sqlitex.Execute(conn, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Get returns the values for the requested keys, omitting absent ones.
func (s *SQLiteStore) Get(_ context.Context, keys []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make(map[string]string, len(keys))

	for _, key := range keys {
		err := sqlitex.Execute(s.conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				result[key] = stmt.ColumnText(0)
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
	}

	return result, nil
}

// Set upserts all given key/value pairs in one transaction.
func (s *SQLiteStore) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sqlitex.Execute(s.conn, "BEGIN TRANSACTION", nil); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for key, value := range values {
		err := sqlitex.Execute(s.conn,
			"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			&sqlitex.ExecOptions{Args: []any{key, value}},
		)
		if err != nil {
			_ = sqlitex.Execute(s.conn, "ROLLBACK", nil)
			return fmt.Errorf("failed to write key %s: %w", key, err)
		}
	}

	if err := sqlitex.Execute(s.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}
