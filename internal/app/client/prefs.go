package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const (
	prefCursorPrefix = "cursor."
	prefResyncPrefix = "resync_token."
	prefSessionToken = "session.token"
)

// PrefStore is a small key-value layer over the sync_prefs table. It backs
// the per-type pull cursors and resync tokens, and the session token.
type PrefStore struct {
	db *sql.DB
}

func NewPrefStore(store *Store) *PrefStore {
	return &PrefStore{db: store.db}
}

func (p *PrefStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM sync_prefs WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read pref %s: %w", key, err)
	}
	return value, nil
}

func (p *PrefStore) set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sync_prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write pref %s: %w", key, err)
	}
	return nil
}

func (p *PrefStore) delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM sync_prefs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete pref %s: %w", key, err)
	}
	return nil
}

// Cursor and resync-token bookkeeping (sync.CursorStore).

func (p *PrefStore) Cursor(ctx context.Context, recordType string) (string, error) {
	return p.get(ctx, prefCursorPrefix+recordType)
}

func (p *PrefStore) SetCursor(ctx context.Context, recordType, cursor string) error {
	if cursor == "" {
		return p.delete(ctx, prefCursorPrefix+recordType)
	}
	return p.set(ctx, prefCursorPrefix+recordType, cursor)
}

func (p *PrefStore) ResyncToken(ctx context.Context, recordType string) (int, error) {
	raw, err := p.get(ctx, prefResyncPrefix+recordType)
	if err != nil || raw == "" {
		return 0, err
	}
	token, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse resync token: %w", err)
	}
	return token, nil
}

func (p *PrefStore) SetResyncToken(ctx context.Context, recordType string, token int) error {
	return p.set(ctx, prefResyncPrefix+recordType, strconv.Itoa(token))
}

// ResetAll drops every cursor and resync token so the next sync starts with
// initial pulls. Runs on logout.
func (p *PrefStore) ResetAll(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM sync_prefs WHERE key LIKE ? OR key LIKE ?`,
		prefCursorPrefix+"%", prefResyncPrefix+"%",
	)
	if err != nil {
		return fmt.Errorf("reset cursors: %w", err)
	}
	return nil
}

// Session token storage.

func (p *PrefStore) SessionToken(ctx context.Context) (string, error) {
	return p.get(ctx, prefSessionToken)
}

func (p *PrefStore) SetSessionToken(ctx context.Context, token string) error {
	if token == "" {
		return p.delete(ctx, prefSessionToken)
	}
	return p.set(ctx, prefSessionToken, token)
}
