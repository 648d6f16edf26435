package record

import (
	"context"
	"errors"
	"time"
)

// ErrBadCursor reports a pull cursor the store cannot decode. The client is
// expected to restart from an initial pull in that case.
var ErrBadCursor = errors.New("malformed pull cursor")

// PageCursor is the resume position of one pull stream. Token carries the
// current opaque protocol; Since carries the legacy timestamp protocol still
// used by some record types. At most one is set. Legacy selects the cursor
// format of the next-page token handed back to the client.
type PageCursor struct {
	Token  string
	Since  time.Time
	Legacy bool
}

// Repository is the server-side store contract for synced records.
type Repository interface {
	// UpsertBatch inserts or overwrites the given records for the user.
	// Re-submitting an already accepted record is a no-op overwrite, which
	// makes client push retries safe.
	UpsertBatch(ctx context.Context, userID int, recordType Type, records []Envelope) error

	// Page returns up to limit records changed after the cursor position,
	// ordered by (updated_at, id), plus the opaque token for the next page.
	Page(ctx context.Context, userID int, recordType Type, limit int, cursor PageCursor) ([]Envelope, string, error)
}
