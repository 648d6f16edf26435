package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, email, passwordHash string) (int, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "nurse@clinic.example", password: "long-enough"},
		{name: "email without at sign", email: "nurse.clinic", password: "long-enough", wantErr: ErrInvalidInput},
		{name: "short password", email: "nurse@clinic.example", password: "short", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.wantErr == nil {
				repo.On("Create", mock.Anything, tt.email, mock.AnythingOfType("string")).Return(1, nil)
			}
			svc := NewService(repo, slog.Default())

			id, err := svc.Register(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, 1, id)

			// The repository must never see the plain password.
			hash := repo.Calls[0].Arguments.String(2)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(tt.password)))
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	stored := User{ID: 7, Email: "nurse@clinic.example", PasswordHash: string(hash)}

	t.Run("valid password", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmail", mock.Anything, "nurse@clinic.example").Return(stored, nil)
		svc := NewService(repo, slog.Default())

		u, err := svc.Authenticate(context.Background(), "Nurse@clinic.example", "correct-horse")
		assert.NoError(t, err)
		assert.Equal(t, 7, u.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmail", mock.Anything, "nurse@clinic.example").Return(stored, nil)
		svc := NewService(repo, slog.Default())

		_, err := svc.Authenticate(context.Background(), "nurse@clinic.example", "battery-staple")
		assert.ErrorIs(t, err, ErrInvalidAuth)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindByEmail", mock.Anything, "ghost@clinic.example").Return(User{}, errors.New("no rows"))
		svc := NewService(repo, slog.Default())

		_, err := svc.Authenticate(context.Background(), "ghost@clinic.example", "whatever")
		assert.ErrorIs(t, err, ErrInvalidAuth)
	})
}
