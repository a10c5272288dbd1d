// Package session issues and validates opaque bearer tokens. Tokens are
// accepted either as an Authorization header or a cookie, so the same
// session works for API clients and browsers.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

const (
	// Long-lived sessions; mobile clients don't re-login often.
	sessionDuration = 30 * 24 * time.Hour

	CookieName = "session_token"
)

type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

type Repository interface {
	Create(ctx context.Context, userID uuid.UUID) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
