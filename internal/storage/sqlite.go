package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS collections (
	vault_id   TEXT NOT NULL,
	collection TEXT NOT NULL,
	data       BLOB NOT NULL,
	PRIMARY KEY (vault_id, collection)
);
`

// sqliteIndexVault is the reserved vault_id row holding the global index.
const sqliteIndexVault = "_index"

// SQLite implements Provider backed by a single-file SQLite database.
// Collections are opaque blobs keyed by (vault_id, collection), which keeps
// the whole store in one file without giving up atomic writes.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens (or creates) the database at dsn and applies the schema.
func NewSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Read returns the stored collection bytes, or (nil, nil) when absent.
func (s *SQLite) Read(vaultID, collection string) ([]byte, error) {
	var data []byte
	err := s.conn.QueryRow(
		`SELECT data FROM collections WHERE vault_id = ? AND collection = ?`,
		vaultID, collection,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite read %s/%s: %w", vaultID, collection, err)
	}
	return data, nil
}

// Write upserts the bytes for a vault collection.
func (s *SQLite) Write(vaultID, collection string, data []byte) error {
	_, err := s.conn.Exec(`
		INSERT INTO collections (vault_id, collection, data)
		VALUES (?, ?, ?)
		ON CONFLICT(vault_id, collection) DO UPDATE SET data = excluded.data
	`, vaultID, collection, data)
	if err != nil {
		return fmt.Errorf("storage: sqlite write %s/%s: %w", vaultID, collection, err)
	}
	return nil
}

// DeleteVault removes every collection row for a vault.
func (s *SQLite) DeleteVault(vaultID string) error {
	if _, err := s.conn.Exec(`DELETE FROM collections WHERE vault_id = ?`, vaultID); err != nil {
		return fmt.Errorf("storage: sqlite delete vault %s: %w", vaultID, err)
	}
	return nil
}

// ReadIndex returns the global vault index, or (nil, nil) when absent.
func (s *SQLite) ReadIndex() ([]byte, error) {
	return s.Read(sqliteIndexVault, "vaults")
}

// WriteIndex stores the global vault index.
func (s *SQLite) WriteIndex(data []byte) error {
	return s.Write(sqliteIndexVault, "vaults", data)
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

var _ Provider = (*SQLite)(nil)
