package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
)

const maxFrameSize = 64 * 1024

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browsers connect from the frontend origin; tokens gate access
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler serves GET /ws/{token}. Each request becomes one session that
// runs until the socket closes.
type Handler struct {
	registry *Registry
	resolver interfaces.IdentityResolver
	router   interfaces.MessageRouter
	options  ConnectionOptions
	metrics  *Metrics
	logger   zerolog.Logger
}

func NewHandler(
	registry *Registry,
	resolver interfaces.IdentityResolver,
	router interfaces.MessageRouter,
	options ConnectionOptions,
	metrics *Metrics,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		resolver: resolver,
		router:   router,
		options:  options,
		metrics:  metrics,
		logger:   logger.With().Str("component", "ws_handler").Logger(),
	}
}

// ServeHTTP upgrades first and authenticates second, so a bad token is
// reported with a close code the client can read rather than an HTTP error
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	raw.SetReadLimit(maxFrameSize)

	newSession(h, raw).run(r.Context(), token)
}
