package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"medisync/internal/app/server/api/http/middleware/auth"
	"medisync/internal/domain/record"
)

// Record types still served with timestamp cursors instead of opaque tokens.
var legacyCursorTypes = map[record.Type]bool{
	record.TypeMedicalHistory: true,
}

type Handler struct {
	service    record.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service record.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.pullOp(), h.pull)
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	recordType, err := record.ParseType(input.RecordType)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("unknown record type %q", input.RecordType))
	}
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("missing session")
	}

	failures, err := h.service.ApplyPush(ctx, userID, recordType, input.Body.Records)
	if err != nil {
		return nil, fmt.Errorf("apply push: %w", err)
	}

	return &pushOutput{Body: PushResponse{ValidationErrors: failures}}, nil
}

func (h *Handler) pull(ctx context.Context, input *pullInput) (*pullOutput, error) {
	recordType, err := record.ParseType(input.RecordType)
	if err != nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("unknown record type %q", input.RecordType))
	}
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("missing session")
	}

	cursor, err := parseCursor(recordType, input)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	records, next, err := h.service.Page(ctx, userID, recordType, input.Limit, cursor)
	if errors.Is(err, record.ErrBadCursor) {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("page records: %w", err)
	}

	h.log.Debug("pull served",
		"record_type", recordType, "user_id", userID,
		"records", len(records), "resync_token", input.ResyncToken)
	return &pullOutput{Body: PullResponse{Records: records, ProcessedSince: next}}, nil
}

func parseCursor(recordType record.Type, input *pullInput) (record.PageCursor, error) {
	cursor := record.PageCursor{Legacy: legacyCursorTypes[recordType]}
	switch {
	case input.ProcessToken != "":
		cursor.Token = input.ProcessToken
	case input.ProcessedSince != "":
		since, err := time.Parse(time.RFC3339Nano, input.ProcessedSince)
		if err != nil {
			return cursor, fmt.Errorf("%w: %v", record.ErrBadCursor, err)
		}
		cursor.Since = since
		cursor.Legacy = true
	}
	return cursor, nil
}
