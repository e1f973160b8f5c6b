package types

// Outbound payload discriminators
const (
	NotifyConnectionEstablished = "connection_established"
	NotifyNewMessage            = "new_message"
	NotifyMessageSent           = "message_sent"
	NotifyMessageMarkedRead     = "message_marked_read"
	NotifyMessageRead           = "message_read"
	NotifyUnreadCount           = "unread_count"
	NotifyError                 = "error"
	NotifyPong                  = "pong"
)

// Notification is any payload pushed to a live connection. Values are built
// fresh for every dispatch and never persisted.
type Notification interface {
	Kind() string
}

type ConnectionEstablished struct {
	Type   string `json:"type"`
	UserID UserID `json:"user_id"`
}

func (n ConnectionEstablished) Kind() string { return n.Type }

type NewMessage struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

func (n NewMessage) Kind() string { return n.Type }

type MessageSent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

func (n MessageSent) Kind() string { return n.Type }

type MessageMarkedRead struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

func (n MessageMarkedRead) Kind() string { return n.Type }

type MessageRead struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	ReaderID  UserID `json:"reader_id"`
}

func (n MessageRead) Kind() string { return n.Type }

type UnreadCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func (n UnreadCount) Kind() string { return n.Type }

type ErrorNotification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (n ErrorNotification) Kind() string { return n.Type }

type Pong struct {
	Type string `json:"type"`
}

func (n Pong) Kind() string { return n.Type }

func NewConnectionEstablished(userID UserID) ConnectionEstablished {
	return ConnectionEstablished{Type: NotifyConnectionEstablished, UserID: userID}
}

// NewMessageNotification snapshots msg so later mutations are not observed
// by slow writers.
func NewMessageNotification(msg *Message) NewMessage {
	snapshot := *msg
	return NewMessage{Type: NotifyNewMessage, Message: &snapshot}
}

func NewMessageSent(messageID int64) MessageSent {
	return MessageSent{Type: NotifyMessageSent, MessageID: messageID}
}

func NewMessageMarkedRead(messageID int64) MessageMarkedRead {
	return MessageMarkedRead{Type: NotifyMessageMarkedRead, MessageID: messageID}
}

func NewMessageRead(messageID int64, readerID UserID) MessageRead {
	return MessageRead{Type: NotifyMessageRead, MessageID: messageID, ReaderID: readerID}
}

func NewUnreadCount(count int) UnreadCount {
	return UnreadCount{Type: NotifyUnreadCount, Count: count}
}

func NewError(reason string) ErrorNotification {
	return ErrorNotification{Type: NotifyError, Message: reason}
}

func NewPong() Pong {
	return Pong{Type: NotifyPong}
}
