package types

import (
	"encoding/json"
	"fmt"
)

// Inbound frame types
const (
	FramePing           = "ping"
	FrameMessage        = "message"
	FrameMarkRead       = "mark_read"
	FrameGetUnreadCount = "get_unread_count"
)

// Frame is the raw envelope of one inbound WebSocket frame. Body keeps the
// whole object so the per-type struct can be decoded from it.
type Frame struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"-"`
}

// SendMessageFrame is the body of a "message" frame
type SendMessageFrame struct {
	Content    string `json:"content" validate:"required,max=4096"`
	ReceiverID UserID `json:"receiver_id" validate:"required,gt=0"`
}

// MarkReadFrame is the body of a "mark_read" frame
type MarkReadFrame struct {
	MessageID int64 `json:"message_id" validate:"required,gt=0"`
}

// DecodeFrame parses one inbound frame. Anything that is not a JSON object
// with a string "type" field is rejected with ErrMalformedFrame.
func DecodeFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if frame.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	frame.Body = append(json.RawMessage(nil), data...)
	return &frame, nil
}

// Bind decodes the frame body into v and validates it
func (f *Frame) Bind(v interface{}) error {
	if err := json.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return Validate(v)
}
