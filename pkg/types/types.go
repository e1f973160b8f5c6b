package types

import (
	"time"
)

// UserID identifies an account. The delivery layer only uses it as a map key.
type UserID = int64

// User is a registered account
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is a gathering organised by a user
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	OrganizerID UserID    `json:"organizer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a direct message between two users.
// Rows are created on send and mutated once, when the receiver reads them.
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	SenderID   UserID    `json:"sender_id"`
	ReceiverID UserID    `json:"receiver_id"`
	IsRead     bool      `json:"is_read"`
}

// Page bounds list queries
type Page struct {
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=1,lte=500"`
}

// DefaultPage mirrors the REST defaults (skip=0, limit=100)
func DefaultPage() Page {
	return Page{Skip: 0, Limit: 100}
}
