package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"medisync/internal/domain/session"
	"medisync/internal/domain/user"
)

type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
}

func (h *Handler) register(ctx context.Context, input *credentialsInput) (*tokenOutput, error) {
	userID, err := h.service.Register(ctx, input.Body.Email, input.Body.Password)
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		return nil, huma.Error409Conflict("email already registered")
	case errors.Is(err, user.ErrInvalidInput):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case err != nil:
		return nil, fmt.Errorf("register user: %w", err)
	}

	token, err := h.session.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	h.log.Info("user registered", "user_id", userID)
	return &tokenOutput{Body: TokenResponse{Token: token}}, nil
}

func (h *Handler) login(ctx context.Context, input *credentialsInput) (*tokenOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}

	token, err := h.session.Create(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &tokenOutput{Body: TokenResponse{Token: token}}, nil
}

func (h *Handler) logout(ctx context.Context, input *logoutInput) (*logoutOutput, error) {
	token := strings.TrimPrefix(input.Authorization, "Bearer ")
	if err := h.session.Revoke(ctx, token); err != nil {
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	return &logoutOutput{Body: StatusResponse{Status: "OK"}}, nil
}
