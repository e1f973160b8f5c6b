package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	dbconfig "gatherly/pkg/database"
	"gatherly/pkg/interfaces"
)

var _ interfaces.DatabaseManager = (*Manager)(nil)

const (
	writeQueueSize   = 100
	writeWaitTimeout = 30 * time.Second
	busyRetryDelay   = 100 * time.Millisecond
)

// Manager implements the DatabaseManager interface on SQLite.
// Reads run concurrently on the pool; every write is funnelled through a
// single writer goroutine and runs inside its own transaction.
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	logger       zerolog.Logger
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	ctx       context.Context
	operation func(*sql.Tx) error
	result    chan error
}

// NewManager opens the database, applies pending migrations, validates
// the schema and starts the writer goroutine
func NewManager(config *dbconfig.Config, logger zerolog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(config.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	logger = logger.With().Str("component", "database").Logger()

	applied, err := dbconfig.NewMigrationManager(db).ApplyMigrations()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, version := range applied {
		logger.Info().Str("version", version).Msg("applied migration")
	}

	if err := dbconfig.NewSchemaValidator(db).Validate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		logger:       logger,
		writeChannel: make(chan writeOperation, writeQueueSize),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := m.runInTx(op.ctx, op.operation)
			if err != nil && isBusy(err) {
				// TECHNICAL: another process holds the lock past busy_timeout, retry once
				m.logger.Warn().Err(err).Msg("database busy, retrying write")
				time.Sleep(busyRetryDelay)
				err = m.runInTx(op.ctx, op.operation)
			}
			op.result <- err

		case <-m.shutdown:
			m.drainWrites()
			m.logger.Debug().Msg("write loop shutting down")
			return
		}
	}
}

// drainWrites finishes writes already queued when shutdown starts
func (m *Manager) drainWrites() {
	for {
		select {
		case op := <-m.writeChannel:
			op.result <- m.runInTx(op.ctx, op.operation)
		default:
			return
		}
	}
}

func (m *Manager) runInTx(ctx context.Context, operation func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := operation(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// executeWrite queues a transactional write and waits for it to finish
func (m *Manager) executeWrite(ctx context.Context, operation func(*sql.Tx) error) error {
	result := make(chan error, 1)
	if err := m.enqueue(writeOperation{ctx: ctx, operation: operation, result: result}); err != nil {
		return err
	}
	return <-result
}

// enqueue holds the read lock while sending so Close cannot stop the
// writer between the closed check and the send. Anything queued here is
// processed or drained before the writer exits.
func (m *Manager) enqueue(op writeOperation) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrManagerClosed
	}

	timer := time.NewTimer(writeWaitTimeout)
	defer timer.Stop()

	select {
	case m.writeChannel <- op:
		return nil
	case <-op.ctx.Done():
		return op.ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	}
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users LIMIT 1").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// GetDB returns the underlying database connection
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Close drains pending writes and closes the database. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
