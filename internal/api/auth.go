package api

import (
	"net/http"

	"gatherly/pkg/types"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.replyError(w, r, err)
		return
	}

	user, err := s.deps.Accounts.Register(r.Context(), req)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	s.requestLogger(r).Info().Int64("user_id", user.ID).Msg("user registered")
	s.reply(w, r, http.StatusOK, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		s.replyError(w, r, err)
		return
	}

	token, err := s.deps.Accounts.Login(r.Context(), req)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, token)
}

// logout is stateless: tokens simply expire
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, http.StatusOK, MessageResponse{Message: "logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, http.StatusOK, currentUser(r))
}
