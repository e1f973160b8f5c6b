package auth

import "errors"

var (
	ErrInvalidLogin  = errors.New("incorrect email or password")
	ErrInvalidToken  = errors.New("invalid token")
	ErrSecretTooWeak = errors.New("token secret must be at least 16 bytes")
)
