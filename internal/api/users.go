package api

import (
	"net/http"
	"strings"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	users, err := s.deps.Store.ListUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	user, err := s.deps.Store.GetUser(r.Context(), id)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, user)
}
