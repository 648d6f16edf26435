package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"medisync/internal/domain/record"
	"medisync/internal/sync"
)

const timeLayout = time.RFC3339Nano

// RecordRepository is the local store for one record type. It owns the sync
// status column: every status write is a compare-and-set so overlapping sync
// invocations and local edits cannot corrupt a reserved batch.
type RecordRepository struct {
	db         *sql.DB
	recordType record.Type
	log        *slog.Logger
}

func NewRecordRepository(store *Store, recordType record.Type, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:         store.db,
		recordType: recordType,
		log:        log.With("component", "record_repository", "record_type", recordType),
	}
}

// Save inserts a freshly authored record as Pending.
func (r *RecordRepository) Save(ctx context.Context, env record.Envelope) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, record_type, patient_id, payload, sync_status, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		env.ID.String(), string(r.recordType), env.PatientID.String(), string(env.Payload),
		string(sync.StatusPending), env.CreatedAt.Format(timeLayout), env.UpdatedAt.Format(timeLayout),
		formatNullableTime(env.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Update overwrites the payload of an existing record and returns it to
// Pending, whatever its previous status.
func (r *RecordRepository) Update(ctx context.Context, env record.Envelope) error {
	env.Touch()
	res, err := r.db.ExecContext(ctx, `
		UPDATE records
		SET payload = ?, sync_status = ?, updated_at = ?, deleted_at = ?
		WHERE id = ? AND record_type = ?`,
		string(env.Payload), string(sync.StatusPending), env.UpdatedAt.Format(timeLayout),
		formatNullableTime(env.DeletedAt), env.ID.String(), string(r.recordType),
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, id uuid.UUID) (*record.Envelope, sync.Status, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, payload, sync_status, created_at, updated_at, deleted_at
		FROM records WHERE id = ? AND record_type = ?`,
		id.String(), string(r.recordType),
	)
	env, status, err := scanEnvelope(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", record.ErrNotFound
		}
		return nil, "", fmt.Errorf("get record: %w", err)
	}
	return env, status, nil
}

// List returns all live records of this type with their sync status, newest
// edit first.
func (r *RecordRepository) List(ctx context.Context) ([]record.Envelope, []sync.Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, payload, sync_status, created_at, updated_at, deleted_at
		FROM records
		WHERE record_type = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC`,
		string(r.recordType),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var envs []record.Envelope
	var statuses []sync.Status
	for rows.Next() {
		env, status, err := scanEnvelope(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan record: %w", err)
		}
		envs = append(envs, *env)
		statuses = append(statuses, status)
	}
	return envs, statuses, rows.Err()
}

// WithStatus implements the sync repository contract: oldest edit first so
// long backlogs drain in authoring order.
func (r *RecordRepository) WithStatus(ctx context.Context, status sync.Status) ([]record.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, payload, sync_status, created_at, updated_at, deleted_at
		FROM records
		WHERE record_type = ? AND sync_status = ?
		ORDER BY updated_at ASC`,
		string(r.recordType), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select by status: %w", err)
	}
	defer rows.Close()

	var envs []record.Envelope
	for rows.Next() {
		env, _, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		envs = append(envs, *env)
	}
	return envs, rows.Err()
}

// SetStatus transitions ids from -> to inside one transaction, guarded on the
// current status, and reports which rows it actually won.
func (r *RecordRepository) SetStatus(ctx context.Context, ids []uuid.UUID, from, to sync.Status) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if !sync.CanTransition(from, to) {
		return nil, fmt.Errorf("illegal transition %s -> %s", from, to)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+3)
	args = append(args, string(to), string(r.recordType), string(from))
	for _, id := range ids {
		args = append(args, id.String())
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		UPDATE records SET sync_status = ?
		WHERE record_type = ? AND sync_status = ? AND id IN (%s)
		RETURNING id`, placeholders),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}

	var won []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse id: %w", err)
		}
		won = append(won, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return won, nil
}

func (r *RecordRepository) SetStatusAll(ctx context.Context, from, to sync.Status) error {
	if !sync.CanTransition(from, to) {
		return fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE records SET sync_status = ?
		WHERE record_type = ? AND sync_status = ?`,
		string(to), string(r.recordType), string(from),
	)
	if err != nil {
		return fmt.Errorf("set status all: %w", err)
	}
	return nil
}

// Merge upserts one pulled page in a single transaction, applying the
// conflict policy per record. Re-merging the same page is a no-op for rows
// already at the pulled state, which makes crash-and-retry before cursor
// persistence safe.
func (r *RecordRepository) Merge(ctx context.Context, payloads []record.Envelope) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, env := range payloads {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT sync_status FROM records WHERE id = ? AND record_type = ?`,
			env.ID.String(), string(r.recordType),
		).Scan(&current)

		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("probe local copy: %w", err)
		}

		switch sync.Resolve(exists, sync.Status(current)) {
		case sync.ResolutionKeepLocal:
			continue
		case sync.ResolutionInsert, sync.ResolutionOverwrite:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO records (id, record_type, patient_id, payload, sync_status, created_at, updated_at, deleted_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					patient_id = excluded.patient_id,
					payload = excluded.payload,
					sync_status = excluded.sync_status,
					created_at = excluded.created_at,
					updated_at = excluded.updated_at,
					deleted_at = excluded.deleted_at`,
				env.ID.String(), string(r.recordType), env.PatientID.String(), string(env.Payload),
				string(sync.StatusDone), env.CreatedAt.Format(timeLayout), env.UpdatedAt.Format(timeLayout),
				formatNullableTime(env.DeletedAt),
			)
			if err != nil {
				return fmt.Errorf("merge record %s: %w", env.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

func (r *RecordRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE record_type = ? AND sync_status = ?`,
		string(r.recordType), string(sync.StatusPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner) (*record.Envelope, sync.Status, error) {
	var (
		env       record.Envelope
		id        string
		patientID string
		payload   string
		status    string
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)
	if err := row.Scan(&id, &patientID, &payload, &status, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, "", err
	}

	var err error
	if env.ID, err = uuid.Parse(id); err != nil {
		return nil, "", fmt.Errorf("parse id: %w", err)
	}
	if env.PatientID, err = uuid.Parse(patientID); err != nil {
		return nil, "", fmt.Errorf("parse patient id: %w", err)
	}
	env.Payload = []byte(payload)
	if env.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, "", fmt.Errorf("parse created_at: %w", err)
	}
	if env.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, "", fmt.Errorf("parse updated_at: %w", err)
	}
	if deletedAt.Valid {
		t, err := time.Parse(timeLayout, deletedAt.String)
		if err != nil {
			return nil, "", fmt.Errorf("parse deleted_at: %w", err)
		}
		env.DeletedAt = &t
	}
	return &env, sync.Status(status), nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
