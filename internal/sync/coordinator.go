package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Coordinator orchestrates push and pull for one record type. It is generic
// over the repository and transport contracts so every record type shares the
// same reconciliation logic; only the collaborators differ.
type Coordinator[P Payload] struct {
	repo    Repository[P]
	client  Client[P]
	cursors CursorStore
	cfg     Config
	log     *slog.Logger
}

func NewCoordinator[P Payload](repo Repository[P], client Client[P], cursors CursorStore, cfg Config, log *slog.Logger) *Coordinator[P] {
	cfg = cfg.withDefaults()
	return &Coordinator[P]{
		repo:    repo,
		client:  client,
		cursors: cursors,
		cfg:     cfg,
		log:     log.With("component", "sync_coordinator", "record_type", cfg.RecordType),
	}
}

// Result summarizes one push or pull invocation.
type Result struct {
	Uploaded   int
	Rejected   int
	Downloaded int
	Pages      int
	Rejections []ValidationError
	StartTime  time.Time
	Duration   time.Duration
}

func (r *Result) merge(other *Result) {
	r.Uploaded += other.Uploaded
	r.Rejected += other.Rejected
	r.Downloaded += other.Downloaded
	r.Pages += other.Pages
	r.Rejections = append(r.Rejections, other.Rejections...)
	r.Duration += other.Duration
}

// Push transmits locally pending records in batches until none remain.
//
// Each batch is reserved Pending -> InFlight before transmission so that a
// concurrent edit (or an overlapping invocation) can neither join nor corrupt
// it: only the ids captured at selection time are affected. The server
// response partitions the reserved set completely: ids named in the
// validation-error list become Invalid, all others Done. On a transport or
// protocol failure the reservation is reverted to Pending before returning,
// so no invocation terminates with stranded in-flight records.
func (c *Coordinator[P]) Push(ctx context.Context) (*Result, error) {
	res := &Result{StartTime: time.Now()}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	for {
		pending, err := c.repo.WithStatus(ctx, StatusPending)
		if err != nil {
			return res, fmt.Errorf("select pending: %w", err)
		}
		if len(pending) == 0 {
			return res, nil
		}

		batch := pending
		if len(batch) > c.cfg.BatchSize {
			batch = batch[:c.cfg.BatchSize]
		}

		reserved, err := c.repo.SetStatus(ctx, payloadIDs(batch), StatusPending, StatusInFlight)
		if err != nil {
			return res, fmt.Errorf("reserve batch: %w", err)
		}
		if len(reserved) == 0 {
			// A concurrent invocation won every reservation; its run will
			// carry these records.
			return res, nil
		}
		batch = filterByID(batch, reserved)
		ids := reserved

		outcome, err := c.client.Push(ctx, batch)
		if err != nil {
			if _, revertErr := c.repo.SetStatus(ctx, ids, StatusInFlight, StatusPending); revertErr != nil {
				c.log.Error("failed to revert reservation after push failure",
					"batch_size", len(ids), "error", revertErr)
				return res, errors.Join(err, fmt.Errorf("revert reservation: %w", revertErr))
			}
			c.log.Warn("push failed, batch reverted to pending",
				"batch_size", len(ids), "error", err)
			return res, err
		}

		rejected := make(map[uuid.UUID]bool, len(outcome.ValidationErrors))
		for _, ve := range outcome.ValidationErrors {
			rejected[ve.ID] = true
		}

		doneIDs := make([]uuid.UUID, 0, len(ids))
		invalidIDs := make([]uuid.UUID, 0, len(outcome.ValidationErrors))
		for _, id := range ids {
			if rejected[id] {
				invalidIDs = append(invalidIDs, id)
			} else {
				doneIDs = append(doneIDs, id)
			}
		}

		if _, err := c.repo.SetStatus(ctx, doneIDs, StatusInFlight, StatusDone); err != nil {
			return res, fmt.Errorf("mark done: %w", err)
		}
		if _, err := c.repo.SetStatus(ctx, invalidIDs, StatusInFlight, StatusInvalid); err != nil {
			return res, fmt.Errorf("mark invalid: %w", err)
		}

		res.Uploaded += len(doneIDs)
		res.Rejected += len(invalidIDs)
		res.Rejections = append(res.Rejections, outcome.ValidationErrors...)

		c.log.Debug("push batch complete",
			"accepted", len(doneIDs), "rejected", len(invalidIDs))

		if len(pending) <= c.cfg.BatchSize {
			return res, nil
		}
	}
}

// Pull fetches server-side changes page by page from the persisted cursor.
//
// Pages are merged strictly in server order: each request's cursor is the one
// issued by the previous page, and a cursor is only persisted after its
// page's merge has committed. A failure mid-stream keeps all progress up to
// the last committed cursor; the next invocation resumes there. The loop
// stops when the server returns a page shorter than the batch size.
func (c *Coordinator[P]) Pull(ctx context.Context) (*Result, error) {
	res := &Result{StartTime: time.Now()}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	cursor, err := c.pullCursor(ctx)
	if err != nil {
		return res, err
	}

	for {
		page, err := c.client.Pull(ctx, c.cfg.BatchSize, cursor)
		if err != nil {
			if res.Pages > 0 {
				c.log.Warn("pull aborted mid-stream, committed pages retained",
					"pages", res.Pages, "downloaded", res.Downloaded, "error", err)
			}
			return res, err
		}

		if len(page.Payloads) > 0 {
			if err := c.repo.Merge(ctx, page.Payloads); err != nil {
				return res, fmt.Errorf("merge page: %w", err)
			}
		}
		if page.NextCursor != "" {
			if err := c.cursors.SetCursor(ctx, c.cfg.RecordType, page.NextCursor); err != nil {
				return res, fmt.Errorf("persist cursor: %w", err)
			}
			cursor = page.NextCursor
		}

		res.Downloaded += len(page.Payloads)
		res.Pages++

		if len(page.Payloads) < c.cfg.BatchSize {
			c.log.Debug("pull complete", "pages", res.Pages, "downloaded", res.Downloaded)
			return res, nil
		}
	}
}

// pullCursor loads the resume position, discarding it when the configured
// resync token has moved past the one the cursor was issued under. A bumped
// token means the payload schema changed incompatibly and pull must restart
// as an initial full pull.
func (c *Coordinator[P]) pullCursor(ctx context.Context) (string, error) {
	stored, err := c.cursors.ResyncToken(ctx, c.cfg.RecordType)
	if err != nil {
		return "", fmt.Errorf("read resync token: %w", err)
	}
	if stored != c.cfg.ResyncToken {
		if err := c.cursors.SetCursor(ctx, c.cfg.RecordType, ""); err != nil {
			return "", fmt.Errorf("invalidate cursor: %w", err)
		}
		if err := c.cursors.SetResyncToken(ctx, c.cfg.RecordType, c.cfg.ResyncToken); err != nil {
			return "", fmt.Errorf("store resync token: %w", err)
		}
		c.log.Info("resync token advanced, restarting initial pull",
			"stored", stored, "configured", c.cfg.ResyncToken)
		return "", nil
	}

	cursor, err := c.cursors.Cursor(ctx, c.cfg.RecordType)
	if err != nil {
		return "", fmt.Errorf("read cursor: %w", err)
	}
	return cursor, nil
}

// PendingCount exposes the repository's backlog for progress indicators.
func (c *Coordinator[P]) PendingCount(ctx context.Context) (int, error) {
	return c.repo.PendingCount(ctx)
}

func payloadIDs[P Payload](batch []P) []uuid.UUID {
	ids := make([]uuid.UUID, len(batch))
	for i, p := range batch {
		ids[i] = p.PrimaryID()
	}
	return ids
}

func filterByID[P Payload](batch []P, ids []uuid.UUID) []P {
	keep := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := make([]P, 0, len(ids))
	for _, p := range batch {
		if keep[p.PrimaryID()] {
			out = append(out, p)
		}
	}
	return out
}
