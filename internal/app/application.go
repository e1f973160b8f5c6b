package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gatherly/internal/api"
	"gatherly/internal/auth"
	"gatherly/internal/config"
	"gatherly/internal/database"
	"gatherly/internal/router"
	"gatherly/internal/websocket"
)

var (
	ErrAlreadyStarted = errors.New("application already started")
	ErrNotStarted     = errors.New("application not started")
)

// Application coordinates all system components.
// Initialization order: Database → Auth → Registry → Router → WebSocket → API → HTTP
type Application struct {
	config     *config.Config
	logger     zerolog.Logger
	dbManager  *database.Manager
	accounts   *auth.Service
	registry   *websocket.Registry
	dispatcher *websocket.Dispatcher
	reaper     *websocket.Reaper
	handler    http.Handler
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// NewApplication creates a new application instance with all components initialized
func NewApplication(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: database manager (applies migrations and validates the schema)
	dbManager, err := database.NewManager(cfg.DatabaseConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	// STEP 2: credentials
	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	resolver := auth.NewResolver(tokens, dbManager, logger)
	accounts := auth.NewService(dbManager, tokens)

	// STEP 3: live connection tracking
	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	wsMetrics := websocket.NewMetrics(metricsRegistry)
	registry := websocket.NewRegistry(wsMetrics)
	dispatcher := websocket.NewDispatcher(registry, wsMetrics, logger)
	reaper := websocket.NewReaper(registry, websocket.ReaperConfig{
		Interval: cfg.WebSocket.ReaperInterval,
		Timeout:  cfg.WebSocket.IdleTimeout,
	}, wsMetrics, logger)

	// STEP 4: message router shared by REST and WebSocket
	limiter := router.NewRateLimiter(cfg.WebSocket.MessageRate, time.Minute)
	messageRouter := router.NewRouter(dbManager, dispatcher, limiter, logger)

	// STEP 5: WebSocket endpoint
	wsHandler := websocket.NewHandler(registry, resolver, messageRouter, websocket.ConnectionOptions{
		SendBuffer:   cfg.WebSocket.SendBuffer,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
	}, wsMetrics, logger)

	// STEP 6: REST surface
	apiServer := api.NewServer(api.Dependencies{
		Store:          dbManager,
		Accounts:       accounts,
		Resolver:       resolver,
		Router:         messageRouter,
		Connections:    registry,
		WebSocket:      wsHandler,
		Metrics:        promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
		RequestMetrics: api.NewRequestMetrics(metricsRegistry),
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		logger:     logger.With().Str("component", "app").Logger(),
		dbManager:  dbManager,
		accounts:   accounts,
		registry:   registry,
		dispatcher: dispatcher,
		reaper:     reaper,
		handler:    apiServer,
		httpServer: httpServer,
	}, nil
}

// Start binds the listener, starts the reaper and serves in the background.
// It returns once the socket is bound.
func (app *Application) Start(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.listener != nil {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}

	if err := app.reaper.Start(ctx); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to start reaper: %w", err)
	}

	app.listener = listener
	app.serveErr = make(chan error, 1)
	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.serveErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(app.serveErr)
	}()

	app.logger.Info().Str("addr", listener.Addr().String()).Msg("gatherly started")
	return nil
}

// Done yields a serve error, or closes when the server stops cleanly
func (app *Application) Done() <-chan error {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.serveErr
}

// Stop gracefully shuts down the application.
// Reverse dependency order: HTTP → Reaper → Connections → Database
func (app *Application) Stop(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.listener == nil {
		return ErrNotStarted
	}

	app.logger.Info().Msg("shutting down")

	var errs []error
	if err := app.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if err := app.reaper.Stop(); err != nil && !errors.Is(err, websocket.ErrReaperNotRunning) {
		errs = append(errs, fmt.Errorf("reaper stop: %w", err))
	}

	// Shutdown does not track hijacked connections
	closed := app.closeConnections()

	if err := app.dbManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	app.listener = nil
	app.logger.Info().Int("closed_connections", closed).Msg("shutdown complete")
	return errors.Join(errs...)
}

func (app *Application) closeConnections() int {
	closed := 0
	for _, userID := range app.registry.Users() {
		for _, conn := range app.registry.Connections(userID) {
			app.registry.Unregister(userID, conn)
			_ = conn.Close()
			closed++
		}
	}
	return closed
}

// Addr returns the bound address once started, otherwise the configured one
func (app *Application) Addr() string {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler exposes the root HTTP handler
func (app *Application) Handler() http.Handler {
	return app.handler
}

// Accounts exposes registration for seeding
func (app *Application) Accounts() *auth.Service {
	return app.accounts
}

// Store exposes the database manager
func (app *Application) Store() *database.Manager {
	return app.dbManager
}

// Registry exposes live connection state
func (app *Application) Registry() *websocket.Registry {
	return app.registry
}
