package websocket

import "errors"

// Connection-related errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrWriteTimeout     = errors.New("write queue full")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)

// Registry-related errors
var (
	ErrNilConnection = errors.New("connection cannot be nil")
)

// Reaper lifecycle errors
var (
	ErrReaperAlreadyRunning = errors.New("reaper is already running")
	ErrReaperNotRunning     = errors.New("reaper is not running")
)

// Application close codes sent in the WebSocket close frame
const (
	CloseInternalError = 4000
	CloseAuthFailed    = 4001
)
