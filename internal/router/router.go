package router

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// MaxContentLength bounds message content in characters
const MaxContentLength = 4096

var _ interfaces.MessageRouter = (*Router)(nil)

// Router persists message changes and then notifies the users involved.
// Both the WebSocket session and the REST API send through it, so every
// persisted message is pushed live the same way.
type Router struct {
	store       interfaces.MessageStore
	notifier    interfaces.Notifier
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// NewRouter creates a message router. limiter may be nil to disable rate
// limiting.
func NewRouter(store interfaces.MessageStore, notifier interfaces.Notifier, limiter *RateLimiter, logger zerolog.Logger) *Router {
	return &Router{
		store:       store,
		notifier:    notifier,
		rateLimiter: limiter,
		logger:      logger.With().Str("component", "router").Logger(),
	}
}

// SendMessage stores a message and pushes new_message to the receiver's
// live connections. A failed push never undoes the stored message.
func (r *Router) SendMessage(ctx context.Context, senderID, receiverID types.UserID, content string) (*types.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	if receiverID <= 0 {
		return nil, ErrInvalidRecipient
	}

	if r.rateLimiter != nil && !r.rateLimiter.Allow(senderID) {
		return nil, ErrRateLimitExceeded
	}

	message, err := r.store.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	delivered := r.notifier.SendTo(receiverID, types.NewMessageNotification(message))
	r.logger.Debug().
		Int64("message_id", message.ID).
		Int64("sender_id", senderID).
		Int64("receiver_id", receiverID).
		Int("delivered", delivered).
		Msg("message routed")

	return message, nil
}

// MarkRead marks a message read for its receiver and tells the sender.
// Marking an already-read message succeeds and notifies again.
func (r *Router) MarkRead(ctx context.Context, messageID int64, readerID types.UserID) (*types.Message, error) {
	message, err := r.store.MarkRead(ctx, messageID, readerID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}

	r.notifier.SendTo(message.SenderID, types.NewMessageRead(message.ID, readerID))
	return message, nil
}

// UnreadCount counts the user's unread messages
func (r *Router) UnreadCount(ctx context.Context, userID types.UserID) (int, error) {
	count, err := r.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
