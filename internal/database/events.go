package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

const eventColumns = "id, title, description, date, location, organizer_id, created_at"

// CreateEvent inserts the event and fills in ID and CreatedAt
func (m *Manager) CreateEvent(ctx context.Context, event *types.Event) error {
	createdAt := time.Now().UTC()

	return m.executeWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (title, description, date, location, organizer_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			event.Title, event.Description, event.Date.UTC(), event.Location, event.OrganizerID, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", mapConstraintError(err))
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read event id: %w", err)
		}
		event.ID = id
		event.CreatedAt = createdAt
		return nil
	})
}

// GetEvent retrieves an event by ID
func (m *Manager) GetEvent(ctx context.Context, eventID int64) (*types.Event, error) {
	row := m.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", eventID)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err, interfaces.ErrEventNotFound)
	}
	return event, nil
}

// ListEvents returns events in date order
func (m *Manager) ListEvents(ctx context.Context, page types.Page) ([]*types.Event, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY date, id LIMIT ? OFFSET ?",
		page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []*types.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// UpdateEvent overwrites the mutable fields of an existing event
func (m *Manager) UpdateEvent(ctx context.Context, event *types.Event) error {
	return m.executeWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET title = ?, description = ?, date = ?, location = ? WHERE id = ?`,
			event.Title, event.Description, event.Date.UTC(), event.Location, event.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update event: %w", mapConstraintError(err))
		}
		return requireAffected(res, interfaces.ErrEventNotFound)
	})
}

// DeleteEvent removes an event
func (m *Manager) DeleteEvent(ctx context.Context, eventID int64) error {
	return m.executeWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
		if err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return requireAffected(res, interfaces.ErrEventNotFound)
	})
}

func requireAffected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func scanEvent(s scanner) (*types.Event, error) {
	var (
		event       types.Event
		description sql.NullString
	)
	err := s.Scan(&event.ID, &event.Title, &description, &event.Date,
		&event.Location, &event.OrganizerID, &event.CreatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		event.Description = &description.String
	}
	return &event, nil
}
