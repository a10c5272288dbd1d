package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/billbatista/splittab/middleware"
)

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "groupID"))
	if !ok {
		return
	}

	balances, err := s.expenses.GroupBalances(r.Context(), callerID, groupID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, orEmpty(balances))
}

func (s *Server) handleMemberBalance(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "groupID"))
	if !ok {
		return
	}
	userID, ok := parseID(w, chi.URLParam(r, "userID"))
	if !ok {
		return
	}

	balance, err := s.expenses.MemberBalance(r.Context(), callerID, groupID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, balance)
}

// handleSimplifiedDebts returns the settlement plan for a group, recomputed
// from the current balance snapshot on every request.
func (s *Server) handleSimplifiedDebts(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())
	groupID, ok := parseID(w, chi.URLParam(r, "groupID"))
	if !ok {
		return
	}

	instructions, err := s.expenses.SimplifiedDebts(r.Context(), callerID, groupID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, orEmpty(instructions))
}

func (s *Server) handleUserBalances(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	balances, err := s.expenses.UserBalances(r.Context(), callerID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, orEmpty(balances))
}

func (s *Server) handleUserNet(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	net, err := s.expenses.UserNet(r.Context(), callerID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, net)
}
