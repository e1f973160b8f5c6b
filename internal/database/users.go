package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

const userColumns = "id, username, email, password_hash, created_at"

// CreateUser inserts the user and fills in ID and CreatedAt
func (m *Manager) CreateUser(ctx context.Context, user *types.User) error {
	createdAt := time.Now().UTC()

	return m.executeWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			user.Username, user.Email, user.PasswordHash, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", mapConstraintError(err))
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read user id: %w", err)
		}
		user.ID = id
		user.CreatedAt = createdAt
		return nil
	})
}

// GetUser retrieves a user by ID
func (m *Manager) GetUser(ctx context.Context, userID types.UserID) (*types.User, error) {
	row := m.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, interfaces.ErrUserNotFound)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (m *Manager) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	row := m.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, interfaces.ErrUserNotFound)
	}
	return user, nil
}

// ListUsers pages through users, optionally filtered by a substring of
// username or email
func (m *Manager) ListUsers(ctx context.Context, search string, page types.Page) ([]*types.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []interface{}
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + search + "%"
		query += " WHERE username LIKE ? OR email LIKE ?"
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Skip)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []*types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*types.User, error) {
	var user types.User
	if err := s.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
