package api

import (
	"net/http"

	"gatherly/pkg/types"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	events, err := s.deps.Store.ListEvents(r.Context(), page)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req types.EventRequest
	if err := decodeBody(r, &req); err != nil {
		s.replyError(w, r, err)
		return
	}

	event := &types.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date.UTC(),
		Location:    req.Location,
		OrganizerID: currentUser(r).ID,
	}
	if err := s.deps.Store.CreateEvent(r.Context(), event); err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, event)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	event, err := s.deps.Store.GetEvent(r.Context(), id)
	if err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, event)
}

// ownedEvent loads the event at {id} and checks the caller organises it
func (s *Server) ownedEvent(r *http.Request) (*types.Event, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}

	event, err := s.deps.Store.GetEvent(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != currentUser(r).ID {
		return nil, errForbidden
	}
	return event, nil
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.ownedEvent(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	var req types.EventRequest
	if err := decodeBody(r, &req); err != nil {
		s.replyError(w, r, err)
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Date = req.Date.UTC()
	event.Location = req.Location
	if err := s.deps.Store.UpdateEvent(r.Context(), event); err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, event)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.ownedEvent(r)
	if err != nil {
		s.replyError(w, r, err)
		return
	}

	if err := s.deps.Store.DeleteEvent(r.Context(), event.ID); err != nil {
		s.replyError(w, r, err)
		return
	}
	s.reply(w, r, http.StatusOK, MessageResponse{Message: "event deleted"})
}
