package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes delivery-layer counters. A nil *Metrics records nothing.
type Metrics struct {
	connections   prometheus.Gauge
	onlineUsers   prometheus.Gauge
	sessions      *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	reaped        prometheus.Counter
	inboundFrames *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg, or the default registerer
// when reg is nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatherly_ws_connections",
			Help: "Currently registered WebSocket connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatherly_ws_online_users",
			Help: "Users with at least one registered connection.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherly_ws_sessions_total",
			Help: "WebSocket sessions by outcome of the handshake.",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherly_ws_deliveries_total",
			Help: "Notification writes by result.",
		}, []string{"result"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatherly_ws_reaped_total",
			Help: "Connections closed for inactivity.",
		}),
		inboundFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherly_ws_inbound_frames_total",
			Help: "Inbound frames by type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.connections,
		m.onlineUsers,
		m.sessions,
		m.deliveries,
		m.reaped,
		m.inboundFrames,
	)
	return m
}

func (m *Metrics) setConnections(connections, users int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(connections))
	m.onlineUsers.Set(float64(users))
}

func (m *Metrics) session(result string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(result).Inc()
}

func (m *Metrics) delivery(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.deliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) reap(n int) {
	if m == nil || n == 0 {
		return
	}
	m.reaped.Add(float64(n))
}

func (m *Metrics) frame(frameType string) {
	if m == nil {
		return
	}
	m.inboundFrames.WithLabelValues(frameType).Inc()
}
