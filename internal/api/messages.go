package api

import (
	"net/http"

	"gatherly/pkg/types"
)

// MessageListResponse is the body of GET /messages/received
type MessageListResponse struct {
	Messages    []*types.Message `json:"messages"`
	UnreadCount int              `json:"unread_count"`
}

// UnreadCountResponse is the body of GET /messages/unread-count
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// sendMessage goes through the same router as the WebSocket path, so the
// receiver is notified live when online
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req types.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		s.replyError(w, r, err)
		return
	}

	msg, err := s.deps.Router.SendMessage(r.Context(), currentUser(r).ID, req.ReceiverID, req.Content)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, msg)
}

func (s *Server) receivedMessages(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	user := currentUser(r)
	messages, err := s.deps.Store.ListReceived(r.Context(), user.ID, page)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	unread, err := s.deps.Store.UnreadCount(r.Context(), user.ID)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, MessageListResponse{Messages: messages, UnreadCount: unread})
}

func (s *Server) sentMessages(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	messages, err := s.deps.Store.ListSent(r.Context(), currentUser(r).ID, page)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, messages)
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) {
	other, err := pathID(r, "other_id")
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	messages, err := s.deps.Store.Conversation(r.Context(), currentUser(r).ID, other, page)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, messages)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	if _, err := s.deps.Router.MarkRead(r.Context(), id, currentUser(r).ID); err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, MessageResponse{Message: "message marked as read"})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Router.UnreadCount(r.Context(), currentUser(r).ID)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}
