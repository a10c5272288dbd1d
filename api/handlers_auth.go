package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/billbatista/splittab/middleware"
	"github.com/billbatista/splittab/session"
	"github.com/billbatista/splittab/user"
)

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionBody struct {
	User      *user.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	registered, err := s.users.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			writeJSON(w, http.StatusConflict, Response{Success: false, Message: err.Error()})
		case errors.Is(err, user.ErrBlankPassword), errors.Is(err, user.ErrInvalidEmail):
			badRequest(w, err.Error())
		default:
			respondError(w, r, err)
		}
		return
	}

	sess, err := s.sessions.Create(r.Context(), registered.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, sessionBody{
		User:      registered,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	u, err := s.users.GetByEmail(r.Context(), payload.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if u == nil || s.users.VerifyPassword(u.PasswordHash, payload.Password) != nil {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "invalid email or password"})
		return
	}

	sess, err := s.sessions.Create(r.Context(), u.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, sessionBody{
		User:      u,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	u, err := s.users.GetByID(r.Context(), callerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if u == nil {
		// Valid session for a deleted account.
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "user not found"})
		return
	}

	respond(w, http.StatusOK, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		token = ""
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token != "" {
		if err := s.sessions.Delete(r.Context(), token); err != nil {
			respondError(w, r, err)
			return
		}
	}

	respondMessage(w, http.StatusOK, "logged out")
}

// handleLogoutAll revokes every session the caller holds, not just the one
// making the request.
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	callerID, _ := middleware.GetUserID(r.Context())

	if err := s.sessions.DeleteByUserID(r.Context(), callerID); err != nil {
		respondError(w, r, err)
		return
	}

	respondMessage(w, http.StatusOK, "logged out everywhere")
}
