package interfaces

// Connection is one live, bidirectional channel to a client process.
// Implementations must make WriteJSON safe for concurrent callers and Close
// safe to call more than once.
type Connection interface {
	// ID is unique per connection, not per user
	ID() string

	// UserID is the authenticated owner of the connection
	UserID() int64

	// WriteJSON queues v for delivery. An error means the connection should
	// be treated as dead.
	WriteJSON(v interface{}) error

	// Close tears the channel down and unblocks pending reads and writes
	Close() error
}
