package interfaces

import (
	"context"

	"gatherly/pkg/types"
)

// Notifier pushes best-effort notifications to a user's live connections.
// It returns the number of connections that accepted the payload and never
// fails. Accepted means queued for the connection's writer: a socket write
// that fails afterwards closes that connection and drops the payload, and
// the connection leaves the registry when its read loop ends.
type Notifier interface {
	SendTo(userID types.UserID, payload types.Notification) int
}

// MessageRouter persists message state changes and then notifies the
// affected users. Notification failures never undo a persisted change.
type MessageRouter interface {
	SendMessage(ctx context.Context, senderID, receiverID types.UserID, content string) (*types.Message, error)
	MarkRead(ctx context.Context, messageID int64, readerID types.UserID) (*types.Message, error)
	UnreadCount(ctx context.Context, userID types.UserID) (int, error)
}
