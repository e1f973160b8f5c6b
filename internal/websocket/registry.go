package websocket

import (
	"sync"
	"time"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// Entry is one registered connection and its last inbound activity
type Entry struct {
	UserID   types.UserID
	Conn     interfaces.Connection
	LastSeen time.Time
}

// Registry tracks every live connection per user.
// A user key exists only while its set is non-empty and a connection has
// an activity entry only while it is registered.
type Registry struct {
	mu      sync.RWMutex
	users   map[types.UserID]map[interfaces.Connection]struct{}
	entries map[interfaces.Connection]*Entry
	metrics *Metrics
	nowFn   func() time.Time
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		users:   make(map[types.UserID]map[interfaces.Connection]struct{}),
		entries: make(map[interfaces.Connection]*Entry),
		metrics: metrics,
		nowFn:   time.Now,
	}
}

// Register adds conn to the user's set and stamps its activity.
// Registering the same connection again only refreshes the stamp.
func (r *Registry) Register(userID types.UserID, conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, exists := r.users[userID]
	if !exists {
		set = make(map[interfaces.Connection]struct{})
		r.users[userID] = set
	}
	set[conn] = struct{}{}

	if entry, ok := r.entries[conn]; ok {
		entry.LastSeen = r.nowFn()
		return nil
	}
	r.entries[conn] = &Entry{UserID: userID, Conn: conn, LastSeen: r.nowFn()}
	r.metrics.setConnections(len(r.entries), len(r.users))
	return nil
}

// Unregister removes conn from the user's set and reports whether it was
// there. Calling it again is a no-op.
func (r *Registry) Unregister(userID types.UserID, conn interfaces.Connection) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(userID, conn)
}

func (r *Registry) removeLocked(userID types.UserID, conn interfaces.Connection) bool {
	set, exists := r.users[userID]
	if !exists {
		return false
	}
	if _, ok := set[conn]; !ok {
		return false
	}

	delete(set, conn)
	if len(set) == 0 {
		delete(r.users, userID)
	}
	delete(r.entries, conn)
	r.metrics.setConnections(len(r.entries), len(r.users))
	return true
}

// Touch records inbound activity. Unregistered connections are ignored.
func (r *Registry) Touch(conn interfaces.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[conn]; ok {
		entry.LastSeen = r.nowFn()
	}
}

// Connections returns a snapshot of the user's connections
func (r *Registry) Connections(userID types.UserID) []interfaces.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	conns := make([]interfaces.Connection, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// Users returns a snapshot of every user with at least one connection
func (r *Registry) Users() []types.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.UserID, 0, len(r.users))
	for userID := range r.users {
		users = append(users, userID)
	}
	return users
}

// IsOnline reports whether the user has any registered connection
func (r *Registry) IsOnline(userID types.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[userID]
	return ok
}

// LastSeen returns the connection's activity stamp
func (r *Registry) LastSeen(conn interfaces.Connection) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[conn]
	if !ok {
		return time.Time{}, false
	}
	return entry.LastSeen, true
}

// EvictStale removes and returns every connection whose last activity is
// before cutoff. Selection and removal happen under one lock so a
// concurrent Touch either lands before eviction or is ignored.
func (r *Registry) EvictStale(cutoff time.Time) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Entry
	for _, entry := range r.entries {
		if entry.LastSeen.Before(cutoff) {
			evicted = append(evicted, *entry)
		}
	}
	for _, entry := range evicted {
		r.removeLocked(entry.UserID, entry.Conn)
	}
	return evicted
}

// Stats returns registry counters for health output
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"online_users":      len(r.users),
		"total_connections": len(r.entries),
	}
}
