// Package session provides server-side session storage backends.
package session

import (
	"context"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrNotFound is returned for unknown, revoked or expired sessions.
var ErrNotFound = errors.New("session not found or expired")

// Session is one signed-in browser or client.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps sessions keyed by an opaque id.
type Store interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (Session, error)
	Lookup(ctx context.Context, id string) (Session, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Revoke(ctx context.Context, id string) error
	RevokeUser(ctx context.Context, userID string) error
}

const idPrefix = "sess-"

// NewID returns a fresh opaque session id.
func NewID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	return idPrefix + id, nil
}
