package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectionPair returns a server-side Connection and the client socket
// reading from it
func connectionPair(t *testing.T, opts ConnectionOptions) (*Connection, *websocket.Conn) {
	t.Helper()
	serverSide := make(chan *websocket.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	conn := NewConnection(<-serverSide, 7, opts)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, client
}

func TestConnection_Identity(t *testing.T) {
	a, _ := connectionPair(t, DefaultConnectionOptions())
	b, _ := connectionPair(t, DefaultConnectionOptions())

	assert.Equal(t, int64(7), a.UserID())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestConnection_WriteJSON(t *testing.T) {
	conn, client := connectionPair(t, DefaultConnectionOptions())

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "pong"}))

	var got map[string]string
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "pong", got["type"])
}

func TestConnection_WriteJSONInvalid(t *testing.T) {
	conn, _ := connectionPair(t, DefaultConnectionOptions())
	assert.ErrorIs(t, conn.WriteJSON(make(chan int)), ErrInvalidJSON)
}

func TestConnection_CloseIdempotent(t *testing.T) {
	conn, client := connectionPair(t, DefaultConnectionOptions())

	require.NoError(t, conn.CloseWithCode(CloseAuthFailed, "bye"))
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done not closed")
	}

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, CloseAuthFailed))
}

func TestConnection_WriteAfterClose(t *testing.T) {
	conn, _ := connectionPair(t, DefaultConnectionOptions())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.WriteJSON("late"), ErrConnectionClosed)
}

func TestConnection_FullQueueTimesOut(t *testing.T) {
	// no writer goroutine, so nothing drains the queue
	conn := &Connection{
		writeCh:      make(chan []byte, 1),
		writeTimeout: 50 * time.Millisecond,
		ctx:          context.Background(),
		cancel:       func() {},
	}

	require.NoError(t, conn.WriteJSON("first"))
	assert.ErrorIs(t, conn.WriteJSON("second"), ErrWriteTimeout)
}

func TestConnection_CloseFlushesQueuedFrames(t *testing.T) {
	conn, client := connectionPair(t, DefaultConnectionOptions())

	const queued = 20
	for i := 0; i < queued; i++ {
		require.NoError(t, conn.WriteJSON(map[string]int{"n": i}))
	}
	require.NoError(t, conn.CloseWithCode(CloseInternalError, "internal error"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	for i := 0; i < queued; i++ {
		var frame map[string]int
		require.NoError(t, client.ReadJSON(&frame), "frame %d", i)
		assert.Equal(t, i, frame["n"])
	}

	_, _, err := client.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
	assert.Equal(t, CloseInternalError, closeErr.Code)
}

func TestConnection_QueuedWriteFailureClosesConnection(t *testing.T) {
	conn, _ := connectionPair(t, DefaultConnectionOptions())

	// break the socket underneath the writer
	require.NoError(t, conn.conn.UnderlyingConn().Close())

	assert.NoError(t, conn.WriteJSON(map[string]string{"type": "pong"}), "queueing succeeds")
	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection not closed after failed write")
	}
	assert.ErrorIs(t, conn.WriteJSON("late"), ErrConnectionClosed)
}

func TestConnection_ConcurrentWrites(t *testing.T) {
	conn, client := connectionPair(t, DefaultConnectionOptions())
	const writers, perWriter = 10, 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				assert.NoError(t, conn.WriteJSON(map[string]int{"n": j}))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < writers*perWriter; i++ {
		var frame map[string]int
		require.NoError(t, client.ReadJSON(&frame))
	}
}
