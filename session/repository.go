package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(sessionDuration),
		CreatedAt: now,
	}

	query := `INSERT INTO sessions (id, user_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.CreatedAt); err != nil {
		return nil, err
	}

	return sess, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Session, error) {
	query := `SELECT id, user_id, token, expires_at, created_at FROM sessions WHERE token = $1`

	var sess Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.Token,
		&sess.ExpiresAt,
		&sess.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if sess.Expired() {
		// Lazy cleanup; an error here just leaves the row for next time.
		_, _ = r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
		return nil, ErrExpiredSession
	}

	return &sess, nil
}

func (r *repository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteByUserID revokes every session the user holds (logout everywhere).
func (r *repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
