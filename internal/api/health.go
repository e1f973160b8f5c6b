package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string         `json:"status"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

const healthTimeout = 2 * time.Second

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Database:  "ok",
		Timestamp: time.Now().UTC(),
	}
	if s.deps.Connections != nil {
		resp.Connections = s.deps.Connections.Stats()
	}

	code := http.StatusOK
	if err := s.deps.Store.HealthCheck(ctx); err != nil {
		s.requestLogger(r).Warn().Err(err).Msg("database health check failed")
		resp.Status = "unhealthy"
		resp.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	s.reply(w, r, code, resp)
}
