package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"medisync/internal/domain/record"
)

type RecordRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewRecordRepository(db *Storage, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:  db,
		log: log,
	}
}

// pageToken is the decoded form of the opaque pull cursor: the position of
// the last record the client has already merged.
type pageToken struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        uuid.UUID `json:"id"`
}

func encodePageToken(t pageToken) string {
	raw, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodePageToken(s string) (pageToken, error) {
	var t pageToken
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("%w: %v", record.ErrBadCursor, err)
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%w: %v", record.ErrBadCursor, err)
	}
	return t, nil
}

// UpsertBatch stores a pushed batch. Conflicting ids are overwritten, so a
// client retrying an already accepted batch converges to the same state. The
// user_id guard keeps an id collision from touching another user's row.
func (r *RecordRepository) UpsertBatch(ctx context.Context, userID int, recordType record.Type, records []record.Envelope) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO records (id, user_id, record_type, patient_id, payload, created_at, updated_at, deleted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				patient_id = excluded.patient_id,
				payload    = excluded.payload,
				updated_at = excluded.updated_at,
				deleted_at = excluded.deleted_at
			WHERE records.user_id = excluded.user_id`,
			rec.ID, userID, string(recordType), rec.PatientID, []byte(rec.Payload),
			rec.CreatedAt, rec.UpdatedAt, rec.DeletedAt)
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// Page returns up to limit records past the cursor, ordered by
// (updated_at, id) so the stream is stable under concurrent writes, plus the
// cursor for the next page. An empty next cursor means the position did not
// advance.
func (r *RecordRepository) Page(ctx context.Context, userID int, recordType record.Type, limit int, cursor record.PageCursor) ([]record.Envelope, string, error) {
	query := `
		SELECT id, patient_id, payload, created_at, updated_at, deleted_at
		FROM records
		WHERE user_id = $1 AND record_type = $2`
	args := []any{userID, string(recordType)}

	switch {
	case cursor.Token != "":
		pos, err := decodePageToken(cursor.Token)
		if err != nil {
			return nil, "", err
		}
		query += ` AND (updated_at, id) > ($3, $4)`
		args = append(args, pos.UpdatedAt, pos.ID)
	case !cursor.Since.IsZero():
		query += ` AND updated_at > $3`
		args = append(args, cursor.Since)
	}

	query += fmt.Sprintf(` ORDER BY updated_at, id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("page records: %w", err)
	}
	defer rows.Close()

	var out []record.Envelope
	for rows.Next() {
		var rec record.Envelope
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.PatientID, &payload,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt); err != nil {
			return nil, "", fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("page records: %w", err)
	}

	if len(out) == 0 {
		return nil, "", nil
	}

	last := out[len(out)-1]
	next := encodePageToken(pageToken{UpdatedAt: last.UpdatedAt, ID: last.ID})
	if cursor.Legacy {
		next = last.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out, next, nil
}
