package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

var _ interfaces.Connection = (*Connection)(nil)

// ConnectionOptions tunes the outbound side of a connection
type ConnectionOptions struct {
	// SendBuffer is the number of frames queued before WriteJSON blocks
	SendBuffer int
	// WriteTimeout bounds both queueing and the socket write
	WriteTimeout time.Duration
}

func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		SendBuffer:   100,
		WriteTimeout: 10 * time.Second,
	}
}

// Connection wraps one authenticated gorilla connection.
// All data frames go through a single writer goroutine so concurrent
// WriteJSON callers never interleave on the socket.
type Connection struct {
	id           string
	userID       types.UserID
	conn         *websocket.Conn
	writeCh      chan []byte
	writeTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	// closing stops new writes; the writer flushes the queue and exits
	closing    chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

// NewConnection wraps conn for userID and starts its writer
func NewConnection(conn *websocket.Conn, userID types.UserID, opts ConnectionOptions) *Connection {
	defaults := DefaultConnectionOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:           uuid.NewString(),
		userID:       userID,
		conn:         conn,
		writeCh:      make(chan []byte, opts.SendBuffer),
		writeTimeout: opts.WriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
		closing:      make(chan struct{}),
		writerDone:   make(chan struct{}),
	}

	go func() {
		err := c.writeLoop()
		close(c.writerDone)
		if err != nil {
			_ = c.Close()
		}
	}()

	return c
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) UserID() types.UserID {
	return c.userID
}

// Done is closed once the connection has been closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// writeLoop owns every data write on the socket. writeCh is never closed.
// Once closing fires, frames already queued are flushed within one write
// timeout before the loop exits. A write error ends the loop early.
func (c *Connection) writeLoop() error {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.write(data, time.Now().Add(c.writeTimeout)); err != nil {
				return err
			}

		case <-c.closing:
			return c.flush(time.Now().Add(c.writeTimeout))
		}
	}
}

func (c *Connection) flush(deadline time.Time) error {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.write(data, deadline); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Connection) write(data []byte, deadline time.Time) error {
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WriteJSON queues v for the writer. It fails when the connection is
// closed or the queue stays full for the write timeout. A nil error means
// the frame was queued, not that it reached the peer: a later socket
// failure closes the connection and the frame is lost.
func (c *Connection) WriteJSON(v interface{}) error {
	select {
	case <-c.closing:
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	timer := time.NewTimer(c.writeTimeout)
	defer timer.Stop()

	select {
	case c.writeCh <- data:
		return nil
	case <-timer.C:
		return ErrWriteTimeout
	case <-c.closing:
		return ErrConnectionClosed
	}
}

// Close sends a normal closure frame and tears the socket down.
// Safe to call more than once.
func (c *Connection) Close() error {
	return c.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode flushes queued frames, then closes with an application
// close code. Only the first close of a connection takes effect.
func (c *Connection) CloseWithCode(code int, reason string) error {
	c.closeOnce.Do(func() {
		close(c.closing)
		// frames queued before the close go out ahead of the close frame
		select {
		case <-c.writerDone:
		case <-time.After(c.writeTimeout):
		}
		c.cancel()

		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(c.writeTimeout))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
