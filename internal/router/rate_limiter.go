package router

import (
	"sync"
	"time"

	"gatherly/pkg/types"
)

// RateLimiter caps messages per user in fixed windows
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[types.UserID]*ClientLimit
	limit       int
	window      time.Duration
	lastCleanup time.Time
	nowFn       func() time.Time
}

// ClientLimit tracks the current window of one user
type ClientLimit struct {
	messageCount int
	windowStart  time.Time
}

// NewRateLimiter allows limit messages per user per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		clients:     make(map[types.UserID]*ClientLimit),
		limit:       limit,
		window:      window,
		lastCleanup: time.Now(),
		nowFn:       time.Now,
	}
}

// Allow reports whether userID may send another message and counts it
func (rl *RateLimiter) Allow(userID types.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()
	if now.Sub(rl.lastCleanup) > 5*rl.window {
		rl.cleanupLocked(now)
	}

	limit, exists := rl.clients[userID]
	if !exists {
		rl.clients[userID] = &ClientLimit{messageCount: 1, windowStart: now}
		return true
	}

	if now.Sub(limit.windowStart) >= rl.window {
		limit.messageCount = 1
		limit.windowStart = now
		return true
	}

	if limit.messageCount >= rl.limit {
		return false
	}

	limit.messageCount++
	return true
}

// Cleanup drops state for users idle for five windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cleanupLocked(rl.nowFn())
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	for userID, limit := range rl.clients {
		if now.Sub(limit.windowStart) > 5*rl.window {
			delete(rl.clients, userID)
		}
	}
	rl.lastCleanup = now
}

// Tracked returns the number of users with rate state
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
