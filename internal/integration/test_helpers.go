package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gatherly/internal/app"
	"gatherly/internal/config"
	"gatherly/pkg/types"
)

const readTimeout = 3 * time.Second

// TestServer is a full gatherly process bound to a loopback port
type TestServer struct {
	App  *app.Application
	Base string
	t    *testing.T
}

// StartTestServer boots the application against a fresh SQLite database.
// tune may adjust the configuration before startup.
func StartTestServer(t *testing.T, tune func(*config.Config)) *TestServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	cfg := config.DefaultConfig()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = port
	cfg.Database.Path = filepath.Join(t.TempDir(), "integration.db")
	cfg.Auth.Secret = "integration-test-secret"
	if tune != nil {
		tune(cfg)
	}

	application, err := app.NewApplication(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, application.Start(context.Background()))

	srv := &TestServer{App: application, Base: "http://" + application.Addr(), t: t}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := application.Stop(ctx)
		if err != nil && !errors.Is(err, app.ErrNotStarted) {
			t.Logf("failed to stop application: %v", err)
		}
	})
	return srv
}

// Do sends a JSON request and decodes a JSON response into out when non-nil
func (s *TestServer) Do(method, path, token string, body, out interface{}) int {
	s.t.Helper()

	var reader bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&reader).Encode(body))
	}
	req, err := http.NewRequest(method, s.Base+path, &reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// Signup registers a user and logs them in
func (s *TestServer) Signup(name string) (*types.User, string) {
	s.t.Helper()

	var user types.User
	code := s.Do(http.MethodPost, "/auth/register", "", types.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret123",
	}, &user)
	require.Equal(s.t, http.StatusOK, code)

	var token types.TokenResponse
	code = s.Do(http.MethodPost, "/auth/login", "", types.LoginRequest{
		Email:    name + "@example.com",
		Password: "secret123",
	}, &token)
	require.Equal(s.t, http.StatusOK, code)
	return &user, token.AccessToken
}

// Dial opens a raw WebSocket to /ws/{token}
func (s *TestServer) Dial(token string) *websocket.Conn {
	s.t.Helper()

	url := fmt.Sprintf("ws://%s/ws/%s", s.App.Addr(), token)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(s.t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	s.t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Connect dials and consumes connection_established
func (s *TestServer) Connect(token string) *websocket.Conn {
	s.t.Helper()

	conn := s.Dial(token)
	frame := ReadFrame(s.t, conn)
	require.Equal(s.t, types.NotifyConnectionEstablished, frame["type"])
	return conn
}

// Send writes one JSON frame
func Send(t *testing.T, conn *websocket.Conn, frame interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

// ReadFrame reads the next JSON frame as a generic map
func ReadFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// ReadCloseCode reads until the server closes the socket
func ReadCloseCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return closeErr.Code
		}
		t.Fatalf("expected close frame, got %v", err)
	}
}

// ExpectSilence asserts nothing arrives within d. The connection cannot
// be read again afterwards.
func ExpectSilence(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(d)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame %s", data)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected read timeout, got %v", err)
}

// ID reads a JSON number field as an int64
func ID(t *testing.T, frame map[string]interface{}, key string) int64 {
	t.Helper()
	value, ok := frame[key].(float64)
	require.True(t, ok, "field %s missing in %v", key, frame)
	return int64(value)
}
