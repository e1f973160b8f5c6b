package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ReaperConfig controls the liveness sweep
type ReaperConfig struct {
	// Interval between sweeps
	Interval time.Duration
	// Timeout is the inactivity after which a connection is closed
	Timeout time.Duration
}

func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Minute,
	}
}

// Reaper periodically closes connections with no inbound activity.
// It owns one goroutine between Start and Stop.
type Reaper struct {
	registry *Registry
	config   ReaperConfig
	metrics  *Metrics
	logger   zerolog.Logger
	nowFn    func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewReaper(registry *Registry, config ReaperConfig, metrics *Metrics, logger zerolog.Logger) *Reaper {
	defaults := DefaultReaperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Reaper{
		registry: registry,
		config:   config,
		metrics:  metrics,
		logger:   logger.With().Str("component", "reaper").Logger(),
		nowFn:    time.Now,
	}
}

// Start launches the sweep loop. It stops when Stop is called or ctx ends.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrReaperAlreadyRunning
	}
	r.running = true

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	r.logger.Info().
		Dur("interval", r.config.Interval).
		Dur("timeout", r.config.Timeout).
		Msg("starting reaper")

	go r.run(ctx, r.done)
	return nil
}

// Stop cancels the loop and waits for it to exit
func (r *Reaper) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrReaperNotRunning
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Info().Msg("reaper stopped")
	return nil
}

func (r *Reaper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep evicts every connection idle longer than the timeout and closes
// it. It returns the number of evicted connections.
func (r *Reaper) Sweep() int {
	cutoff := r.nowFn().Add(-r.config.Timeout)
	evicted := r.registry.EvictStale(cutoff)

	for _, entry := range evicted {
		if err := r.closeEntry(entry); err != nil {
			r.logger.Warn().
				Err(err).
				Int64("user_id", entry.UserID).
				Str("connection_id", entry.Conn.ID()).
				Msg("failed to close stale connection")
		}
	}

	if len(evicted) > 0 {
		r.logger.Info().Int("count", len(evicted)).Msg("reaped stale connections")
	}
	r.metrics.reap(len(evicted))
	return len(evicted)
}

// closeEntry turns a panic in Close into an error so one bad connection
// cannot end the sweep
func (r *Reaper) closeEntry(entry Entry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic closing connection: %v", p)
		}
	}()
	return entry.Conn.Close()
}
