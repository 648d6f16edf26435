package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"medisync/internal/sync"
)

type Servicer interface {
	ApplyPush(ctx context.Context, userID int, recordType Type, records []Envelope) ([]sync.ValidationError, error)
	Page(ctx context.Context, userID int, recordType Type, limit int, cursor PageCursor) ([]Envelope, string, error)
}

// Service implements the server side of the sync protocol: accept pushed
// batches (partitioning them into accepted and rejected) and serve pull pages.
type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "record_service"),
	}
}

// ApplyPush validates and stores a pushed batch. Every record ends up either
// stored or named in the returned validation-error list; the client uses that
// partition to mark its copies Done or Invalid.
func (s *Service) ApplyPush(ctx context.Context, userID int, recordType Type, records []Envelope) ([]sync.ValidationError, error) {
	var failures []sync.ValidationError
	accepted := make([]Envelope, 0, len(records))

	for _, rec := range records {
		if rec.ID == uuid.Nil {
			failures = append(failures, sync.ValidationError{
				ID: rec.ID, Field: "id", Message: "id is required",
			})
			continue
		}
		if rec.UpdatedAt.IsZero() || rec.UpdatedAt.Before(rec.CreatedAt) {
			failures = append(failures, sync.ValidationError{
				ID: rec.ID, Field: "updated_at", Message: "updated_at must not precede created_at",
			})
			continue
		}
		if field, msg, ok := ValidatePayload(recordType, rec.Payload); !ok {
			failures = append(failures, sync.ValidationError{
				ID: rec.ID, Field: field, Message: msg,
			})
			continue
		}
		accepted = append(accepted, rec)
	}

	if len(accepted) > 0 {
		if err := s.repo.UpsertBatch(ctx, userID, recordType, accepted); err != nil {
			return nil, fmt.Errorf("upsert batch: %w", err)
		}
	}

	s.log.Debug("push applied",
		"record_type", recordType, "accepted", len(accepted), "rejected", len(failures))
	return failures, nil
}

// Page serves one pull page for the user.
func (s *Service) Page(ctx context.Context, userID int, recordType Type, limit int, cursor PageCursor) ([]Envelope, string, error) {
	records, next, err := s.repo.Page(ctx, userID, recordType, limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("page records: %w", err)
	}
	return records, next, nil
}
