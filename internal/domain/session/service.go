package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Sessions outlive a working day on purpose: field devices may stay offline
// for weeks and still need to sync on reconnect without a fresh login.
const sessionTTL = 30 * 24 * time.Hour

type Servicer interface {
	Create(ctx context.Context, userID int) (string, error)
	Validate(ctx context.Context, token string) (int, error)
	Revoke(ctx context.Context, token string) error
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

func (s *Service) Create(ctx context.Context, userID int) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)

	if err := s.repo.Create(ctx, userID, hashToken(token), time.Now().Add(sessionTTL)); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

func (s *Service) Validate(ctx context.Context, token string) (int, error) {
	return s.repo.Validate(ctx, hashToken(token))
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, hashToken(token))
}

// Only the hash of a token ever touches storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
