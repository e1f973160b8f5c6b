package interfaces

import (
	"context"

	"gatherly/pkg/types"
)

// MessageStore is the durable message store consumed by the delivery layer.
// Every write is all-or-nothing.
type MessageStore interface {
	// CreateMessage persists a new unread message. Fails with
	// ErrUserNotFound when the receiver does not exist.
	CreateMessage(ctx context.Context, senderID, receiverID types.UserID, content string) (*types.Message, error)

	// MarkRead flips the read flag of a message addressed to readerID.
	// Returns ErrMessageNotFound when the message is absent or addressed to
	// someone else. Marking an already-read message succeeds.
	MarkRead(ctx context.Context, messageID int64, readerID types.UserID) (*types.Message, error)

	// UnreadCount counts unread messages addressed to userID
	UnreadCount(ctx context.Context, userID types.UserID) (int, error)

	ListReceived(ctx context.Context, userID types.UserID, page types.Page) ([]*types.Message, error)
	ListSent(ctx context.Context, userID types.UserID, page types.Page) ([]*types.Message, error)
	Conversation(ctx context.Context, userA, userB types.UserID, page types.Page) ([]*types.Message, error)
}

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, userID types.UserID) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	ListUsers(ctx context.Context, search string, page types.Page) ([]*types.User, error)
}

// EventStore persists events
type EventStore interface {
	CreateEvent(ctx context.Context, event *types.Event) error
	GetEvent(ctx context.Context, eventID int64) (*types.Event, error)
	ListEvents(ctx context.Context, page types.Page) ([]*types.Event, error)
	UpdateEvent(ctx context.Context, event *types.Event) error
	DeleteEvent(ctx context.Context, eventID int64) error
}

// DatabaseManager is the full persistence surface plus lifecycle
type DatabaseManager interface {
	MessageStore
	UserStore
	EventStore

	// HealthCheck verifies database connectivity
	HealthCheck(ctx context.Context) error

	// Close waits for pending writes and closes the database
	Close() error
}
