package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

const messageColumns = "id, content, created_at, sender_id, receiver_id, is_read"

// CreateMessage persists a new unread message. The receiver check and the
// insert share one transaction.
func (m *Manager) CreateMessage(ctx context.Context, senderID, receiverID types.UserID, content string) (*types.Message, error) {
	message := &types.Message{
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		SenderID:   senderID,
		ReceiverID: receiverID,
	}

	err := m.executeWrite(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, receiverID).Scan(&exists)
		if err != nil {
			return notFound(err, interfaces.ErrUserNotFound)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO messages (content, created_at, sender_id, receiver_id, is_read) VALUES (?, ?, ?, ?, 0)`,
			message.Content, message.CreatedAt, message.SenderID, message.ReceiverID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		message.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read message id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// MarkRead flips is_read on a message addressed to readerID. Reading an
// already-read message succeeds without writing.
func (m *Manager) MarkRead(ctx context.Context, messageID int64, readerID types.UserID) (*types.Message, error) {
	var message *types.Message

	err := m.executeWrite(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"SELECT "+messageColumns+" FROM messages WHERE id = ? AND receiver_id = ?",
			messageID, readerID,
		)
		found, err := scanMessage(row)
		if err != nil {
			return notFound(err, interfaces.ErrMessageNotFound)
		}

		if !found.IsRead {
			if _, err := tx.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, messageID); err != nil {
				return fmt.Errorf("failed to mark message read: %w", err)
			}
			found.IsRead = true
		}
		message = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// UnreadCount counts unread messages addressed to userID
func (m *Manager) UnreadCount(ctx context.Context, userID types.UserID) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// ListReceived returns the user's inbox, newest first
func (m *Manager) ListReceived(ctx context.Context, userID types.UserID, page types.Page) ([]*types.Message, error) {
	return m.queryMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE receiver_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, page.Limit, page.Skip,
	)
}

// ListSent returns messages the user sent, newest first
func (m *Manager) ListSent(ctx context.Context, userID types.UserID, page types.Page) ([]*types.Message, error) {
	return m.queryMessages(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE sender_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, page.Limit, page.Skip,
	)
}

// Conversation returns messages exchanged between two users in either
// direction, newest first
func (m *Manager) Conversation(ctx context.Context, userA, userB types.UserID, page types.Page) ([]*types.Message, error) {
	return m.queryMessages(ctx,
		"SELECT "+messageColumns+` FROM messages
		 WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userA, userB, userB, userA, page.Limit, page.Skip,
	)
}

func (m *Manager) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*types.Message, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := []*types.Message{}
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func scanMessage(s scanner) (*types.Message, error) {
	var message types.Message
	err := s.Scan(&message.ID, &message.Content, &message.CreatedAt,
		&message.SenderID, &message.ReceiverID, &message.IsRead)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
