package sync

import (
	"context"

	"github.com/google/uuid"
)

// Payload is the wire form of a single record. The engine treats domain
// fields as opaque; it only needs a stable identity.
type Payload interface {
	PrimaryID() uuid.UUID
}

// Repository is the local-store contract the coordinator syncs against, one
// instance per record type. All status writes are compare-and-set: a row is
// only touched when it still holds the expected from-status, so overlapping
// invocations can never reserve the same record twice.
type Repository[P Payload] interface {
	// WithStatus returns all records of this type currently in status,
	// ordered oldest edit first.
	WithStatus(ctx context.Context, status Status) ([]P, error)

	// SetStatus transitions the given ids from -> to in one transaction and
	// returns the ids actually transitioned. Ids no longer in the
	// from-status are skipped, not failed: a concurrent invocation may have
	// reserved them first, and the caller must act only on its own wins.
	SetStatus(ctx context.Context, ids []uuid.UUID, from, to Status) ([]uuid.UUID, error)

	// SetStatusAll transitions every record of this type currently in the
	// from-status.
	SetStatusAll(ctx context.Context, from, to Status) error

	// Merge upserts pulled server payloads in one transaction, applying
	// Resolve per record. Must be idempotent: re-merging a page after a
	// crash between merge commit and cursor persist is the normal recovery
	// path.
	Merge(ctx context.Context, payloads []P) error

	// PendingCount reports how many records still await a push.
	PendingCount(ctx context.Context) (int, error)
}

// PushOutcome is the server's answer to a push batch. Every id absent from
// ValidationErrors was accepted; the response implicitly partitions the
// whole batch.
type PushOutcome struct {
	ValidationErrors []ValidationError
}

// PullPage is one page of server-side changes plus the cursor to resume from.
type PullPage[P Payload] struct {
	Payloads []P
	// NextCursor is the opaque position after this page. Persisted only
	// once the page's merge has committed.
	NextCursor string
}

// Client is the network transport for one record type.
type Client[P Payload] interface {
	Push(ctx context.Context, batch []P) (*PushOutcome, error)
	Pull(ctx context.Context, limit int, cursor string) (*PullPage[P], error)
}

// CursorStore persists per-record-type pull progress. An empty cursor means
// no pull has completed yet and triggers an initial full pull.
type CursorStore interface {
	Cursor(ctx context.Context, recordType string) (string, error)
	SetCursor(ctx context.Context, recordType, cursor string) error

	// ResyncToken returns the schema version the stored cursor was issued
	// under; zero when never synced.
	ResyncToken(ctx context.Context, recordType string) (int, error)
	SetResyncToken(ctx context.Context, recordType string, token int) error

	// ResetAll drops every cursor and resync token, forcing initial pulls.
	// Invoked on logout.
	ResetAll(ctx context.Context) error
}
