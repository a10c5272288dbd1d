package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/billbatista/splittab/group"
	"github.com/billbatista/splittab/middleware"
)

type createGroupPayload struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	var payload createGroupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	g, err := group.NewGroup(payload.Name, payload.Currency, callerID)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.groups.Create(r.Context(), g); err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, g)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	g, err := s.groups.GetByID(r.Context(), groupID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if g == nil {
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "group " + groupID.String() + " not found"})
		return
	}

	members, err := s.groups.ListMembers(r.Context(), groupID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, struct {
		Group   *group.Group   `json:"group"`
		Members []group.Member `json:"members"`
	}{Group: g, Members: orEmpty(members)})
}

type addMemberPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Only existing members may invite.
	active, err := s.groups.IsActiveMember(r.Context(), groupID, callerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !active {
		writeJSON(w, http.StatusForbidden, Response{Success: false, Message: "caller is not an active member of the group"})
		return
	}

	var payload addMemberPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == uuid.Nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := s.groups.AddMember(r.Context(), groupID, payload.UserID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, http.StatusCreated, "member added")
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	userID, ok := parseID(w, chi.URLParam(r, "userID"))
	if !ok {
		return
	}

	active, err := s.groups.IsActiveMember(r.Context(), groupID, callerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !active {
		writeJSON(w, http.StatusForbidden, Response{Success: false, Message: "caller is not an active member of the group"})
		return
	}

	if err := s.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		if errors.Is(err, group.ErrNotMember) {
			writeJSON(w, http.StatusNotFound, Response{Success: false, Message: err.Error()})
			return
		}
		respondError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "member removed")
}
