package client

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the client's local SQLite database: the records table shared by
// all record-type repositories plus the sync_prefs key-value table (cursors,
// resync tokens, session token).
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}
	return store, nil
}

func (s *Store) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			record_type TEXT NOT NULL,
			patient_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			sync_status TEXT NOT NULL DEFAULT 'PENDING',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			deleted_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_records_type_status ON records(record_type, sync_status);
		CREATE INDEX IF NOT EXISTS idx_records_updated ON records(updated_at);

		CREATE TABLE IF NOT EXISTS sync_prefs (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
