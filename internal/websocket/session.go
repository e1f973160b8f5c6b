package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gatherly/internal/router"
	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateActive
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// session drives one socket through Unauthenticated -> Active -> Closed.
// Only the goroutine running run touches state.
type session struct {
	handler        *Handler
	raw            *websocket.Conn
	conn           *Connection
	user           *types.User
	state          sessionState
	unregisterOnce sync.Once
	logger         zerolog.Logger
}

func newSession(h *Handler, raw *websocket.Conn) *session {
	return &session{
		handler: h,
		raw:     raw,
		state:   stateUnauthenticated,
		logger:  h.logger.With().Str("remote", raw.RemoteAddr().String()).Logger(),
	}
}

func (s *session) transition(to sessionState) {
	s.logger.Debug().Stringer("from", s.state).Stringer("to", to).Msg("session state")
	s.state = to
}

func (s *session) run(ctx context.Context, token string) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error().Interface("panic", p).Msg("session panicked")
			s.handler.metrics.session("internal_error")
			if s.state == stateActive {
				s.reply(types.NewError("internal error"))
			}
			s.close(CloseInternalError, "internal error")
		}
	}()

	if !s.authenticate(ctx, token) {
		return
	}
	s.activate()
	s.readLoop(ctx)
	s.close(websocket.CloseNormalClosure, "")
}

// authenticate resolves the token. On failure the socket is closed with
// CloseAuthFailed and the connection is never registered.
func (s *session) authenticate(ctx context.Context, token string) bool {
	user, err := s.handler.resolver.Resolve(ctx, token)
	if err != nil {
		code, reason, result := CloseAuthFailed, "authentication failed", "auth_failed"
		if !errors.Is(err, interfaces.ErrInvalidCredential) {
			s.logger.Error().Err(err).Msg("identity lookup failed")
			code, reason, result = CloseInternalError, "internal error", "internal_error"
		}
		s.handler.metrics.session(result)
		s.close(code, reason)
		return false
	}

	s.user = user
	s.logger = s.logger.With().Int64("user_id", user.ID).Logger()
	return true
}

func (s *session) activate() {
	s.conn = NewConnection(s.raw, s.user.ID, s.handler.options)
	if err := s.handler.registry.Register(s.user.ID, s.conn); err != nil {
		panic(fmt.Sprintf("register connection: %v", err))
	}
	s.transition(stateActive)
	s.handler.metrics.session("accepted")
	s.logger.Info().Str("connection_id", s.conn.ID()).Msg("connection established")

	s.reply(types.NewConnectionEstablished(s.user.ID))
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		s.handleFrame(ctx, data)
	}
}

func (s *session) handleFrame(ctx context.Context, data []byte) {
	frame, err := types.DecodeFrame(data)
	if err != nil {
		s.reply(types.NewError("invalid JSON format"))
		return
	}
	s.handler.registry.Touch(s.conn)
	s.handler.metrics.frame(frame.Type)

	switch frame.Type {
	case types.FramePing:
		s.reply(types.NewPong())

	case types.FrameMessage:
		var body types.SendMessageFrame
		if err := frame.Bind(&body); err != nil {
			s.reply(types.NewError(err.Error()))
			return
		}
		message, err := s.handler.router.SendMessage(ctx, s.user.ID, body.ReceiverID, body.Content)
		if err != nil {
			s.replyError(err)
			return
		}
		s.reply(types.NewMessageSent(message.ID))

	case types.FrameMarkRead:
		var body types.MarkReadFrame
		if err := frame.Bind(&body); err != nil {
			s.reply(types.NewError(err.Error()))
			return
		}
		message, err := s.handler.router.MarkRead(ctx, body.MessageID, s.user.ID)
		if err != nil {
			s.replyError(err)
			return
		}
		s.reply(types.NewMessageMarkedRead(message.ID))

	case types.FrameGetUnreadCount:
		count, err := s.handler.router.UnreadCount(ctx, s.user.ID)
		if err != nil {
			s.replyError(err)
			return
		}
		s.reply(types.NewUnreadCount(count))

	default:
		s.reply(types.NewError(fmt.Sprintf("unknown message type %q", frame.Type)))
	}
}

func (s *session) reply(payload types.Notification) {
	if err := s.conn.WriteJSON(payload); err != nil {
		s.logger.Debug().Err(err).Str("type", payload.Kind()).Msg("reply dropped")
	}
}

// replyError reports domain failures by name and hides everything else
func (s *session) replyError(err error) {
	switch {
	case errors.Is(err, interfaces.ErrUserNotFound):
		s.reply(types.NewError("receiver not found"))
	case errors.Is(err, interfaces.ErrMessageNotFound):
		s.reply(types.NewError("message not found"))
	case errors.Is(err, router.ErrRateLimitExceeded),
		errors.Is(err, router.ErrEmptyContent),
		errors.Is(err, router.ErrContentTooLong),
		errors.Is(err, router.ErrInvalidRecipient):
		s.reply(types.NewError(err.Error()))
	default:
		s.logger.Error().Err(err).Msg("frame handling failed")
		s.reply(types.NewError("internal error"))
	}
}

// close moves to Closed. Leaving Active unregisters exactly once.
func (s *session) close(code int, reason string) {
	if s.state == stateClosed {
		return
	}

	if s.conn != nil {
		s.unregisterOnce.Do(func() {
			s.handler.registry.Unregister(s.user.ID, s.conn)
		})
		_ = s.conn.CloseWithCode(code, reason)
		s.logger.Info().Str("connection_id", s.conn.ID()).Int("code", code).Msg("connection closed")
	} else {
		_ = s.raw.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second))
		_ = s.raw.Close()
	}
	s.transition(stateClosed)
}
