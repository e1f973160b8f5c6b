package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// Accounts registers users and issues access tokens
type Accounts interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.User, error)
	Login(ctx context.Context, req types.LoginRequest) (*types.TokenResponse, error)
}

// ConnectionStats reports live connection counters
type ConnectionStats interface {
	Stats() map[string]int
}

// Dependencies are the collaborators the HTTP layer delegates to
type Dependencies struct {
	Store       interfaces.DatabaseManager
	Accounts    Accounts
	Resolver    interfaces.IdentityResolver
	Router      interfaces.MessageRouter
	Connections ConnectionStats
	// WebSocket serves /ws/{token}
	WebSocket http.Handler
	// Metrics serves /metrics; nil disables the endpoint
	Metrics http.Handler
	// RequestMetrics may be nil
	RequestMetrics *RequestMetrics
}

// Server is the HTTP surface: REST endpoints, the WebSocket upgrade route,
// health and metrics. It holds no business logic.
type Server struct {
	deps   Dependencies
	logger zerolog.Logger
	router *mux.Router
}

func NewServer(deps Dependencies, logger zerolog.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger.With().Str("component", "api").Logger(),
		router: mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.attachRequestID, s.logRequests)

	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}
	if s.deps.WebSocket != nil {
		s.router.Handle("/ws/{token}", s.deps.WebSocket).Methods(http.MethodGet)
	}

	authRoutes := s.router.PathPrefix("/auth").Subrouter()
	authRoutes.Use(jsonMiddleware)
	authRoutes.HandleFunc("/register", s.register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.login).Methods(http.MethodPost)
	authRoutes.Handle("/logout", s.requireAuth(s.logout)).Methods(http.MethodPost)
	authRoutes.Handle("/me", s.requireAuth(s.me)).Methods(http.MethodGet)

	users := s.router.PathPrefix("/users").Subrouter()
	users.Use(jsonMiddleware)
	users.HandleFunc("", s.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/", s.listUsers).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.getUser).Methods(http.MethodGet)

	events := s.router.PathPrefix("/events").Subrouter()
	events.Use(jsonMiddleware)
	events.HandleFunc("", s.listEvents).Methods(http.MethodGet)
	events.HandleFunc("/", s.listEvents).Methods(http.MethodGet)
	events.Handle("", s.requireAuth(s.createEvent)).Methods(http.MethodPost)
	events.Handle("/", s.requireAuth(s.createEvent)).Methods(http.MethodPost)
	events.HandleFunc("/{id}", s.getEvent).Methods(http.MethodGet)
	events.Handle("/{id}", s.requireAuth(s.updateEvent)).Methods(http.MethodPut)
	events.Handle("/{id}", s.requireAuth(s.deleteEvent)).Methods(http.MethodDelete)

	messages := s.router.PathPrefix("/messages").Subrouter()
	messages.Use(jsonMiddleware)
	messages.Handle("", s.requireAuth(s.sendMessage)).Methods(http.MethodPost)
	messages.Handle("/", s.requireAuth(s.sendMessage)).Methods(http.MethodPost)
	messages.Handle("/received", s.requireAuth(s.receivedMessages)).Methods(http.MethodGet)
	messages.Handle("/sent", s.requireAuth(s.sentMessages)).Methods(http.MethodGet)
	messages.Handle("/unread-count", s.requireAuth(s.unreadCount)).Methods(http.MethodGet)
	messages.Handle("/conversation/{other_id}", s.requireAuth(s.conversation)).Methods(http.MethodGet)
	messages.Handle("/{id}/read", s.requireAuth(s.markRead)).Methods(http.MethodPut)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		s.reply(w, r, http.StatusNotFound, errorBody(http.StatusNotFound, "route not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		s.reply(w, r, http.StatusMethodNotAllowed, errorBody(http.StatusMethodNotAllowed, "method not allowed"))
	})
}

// ServeHTTP implements http.Handler. CORS wraps the router so preflight
// requests are answered before route matching.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.router).ServeHTTP(w, r)
}

// reply writes resp and logs write failures
func (s *Server) reply(w http.ResponseWriter, r *http.Request, code int, resp interface{}) {
	if err := writeJSON(w, code, resp); err != nil {
		s.requestLogger(r).Error().Err(err).Msg("failed to write response")
	}
}

// replyError maps err to a status and logs server-side failures
func (s *Server) replyError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.requestLogger(r).Error().Err(err).Msg("request failed")
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	s.reply(w, r, code, errorBody(code, message))
}
