package interfaces

import "errors"

// Common errors shared by stores and their consumers
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrEventTitleTaken   = errors.New("an event with this title already exists")
	ErrInvalidCredential = errors.New("invalid or expired credential")
)
