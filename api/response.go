package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/billbatista/splittab/ledger"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func respondPaginated(w http.ResponseWriter, status int, data any, p Pagination) {
	writeJSON(w, status, Response{Success: true, Data: data, Pagination: &p})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: true, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: message})
}

// respondError maps the engine's error taxonomy onto status codes.
// Validation, not-found and forbidden pass through with their message
// intact; everything else is a 500 with the cause logged, never exposed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *ledger.ValidationError
		notFoundErr   *ledger.NotFoundError
		forbiddenErr  *ledger.ForbiddenError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: validationErr.Reason})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: notFoundErr.Error()})
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, Response{Success: false, Message: forbiddenErr.Error()})
	default:
		slog.Error("request failed", "error", err, "method", r.Method, "url", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// orEmpty keeps list responses as [] when nothing matched; a nil slice would
// drop the data field from the envelope entirely.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// parsePagination reads limit/offset query params, coercing invalid values
// to defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
