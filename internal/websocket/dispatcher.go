package websocket

import (
	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

var _ interfaces.Notifier = (*Dispatcher)(nil)

// Dispatcher pushes notifications to live connections. Delivery is best
// effort: a failed write drops that connection and never reaches the
// caller.
type Dispatcher struct {
	registry *Registry
	metrics  *Metrics
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, metrics *Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		metrics:  metrics,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// SendTo writes payload to every connection the user has and returns how
// many accepted it. A user with no connections is a silent no-op.
func (d *Dispatcher) SendTo(userID types.UserID, payload types.Notification) int {
	delivered := 0
	for _, conn := range d.registry.Connections(userID) {
		if d.deliver(userID, conn, payload) {
			delivered++
		}
	}
	return delivered
}

// Broadcast writes payload to every registered connection
func (d *Dispatcher) Broadcast(payload types.Notification) int {
	delivered := 0
	for _, userID := range d.registry.Users() {
		delivered += d.SendTo(userID, payload)
	}
	return delivered
}

func (d *Dispatcher) deliver(userID types.UserID, conn interfaces.Connection, payload types.Notification) bool {
	err := conn.WriteJSON(payload)
	d.metrics.delivery(err == nil)
	if err == nil {
		return true
	}

	d.logger.Warn().
		Err(err).
		Int64("user_id", userID).
		Str("connection_id", conn.ID()).
		Str("type", payload.Kind()).
		Msg("delivery failed, dropping connection")

	d.registry.Unregister(userID, conn)
	if closeErr := conn.Close(); closeErr != nil {
		d.logger.Debug().Err(closeErr).Str("connection_id", conn.ID()).Msg("close after failed delivery")
	}
	return false
}
