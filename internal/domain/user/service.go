package user

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

const (
	minEmailLen    = 5
	maxEmailLen    = 254
	minPasswordLen = 8
	// bcrypt truncates longer inputs silently, so reject them instead.
	maxPasswordLen = 72
)

type Servicer interface {
	Register(ctx context.Context, email, password string) (int, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (int, error) {
	if err := validateCredentials(email, password); err != nil {
		s.log.Debug("registration rejected", "email", email, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, strings.ToLower(email), string(hash))
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return User{}, ErrInvalidAuth
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidAuth
	}
	return u, nil
}

func validateCredentials(email, password string) error {
	if len(email) < minEmailLen || len(email) > maxEmailLen || !strings.Contains(email, "@") {
		return fmt.Errorf("email must be %d-%d characters and contain @", minEmailLen, maxEmailLen)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}
