package user

import "errors"

var (
	ErrInvalidInput = errors.New("invalid registration input")
	ErrInvalidAuth  = errors.New("invalid credentials")
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type User struct {
	ID           int
	Email        string
	PasswordHash string
}
