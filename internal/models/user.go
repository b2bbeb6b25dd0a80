package models

import (
	"time"

	"github.com/isdelr/quickreply-be/internal/policy"
)

// User represents a team member account.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"` // Never expose this to the client
	Role         policy.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Actor returns the identity used for authorization decisions.
func (u User) Actor() *policy.Actor {
	return &policy.Actor{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Sanitized returns a copy safe to serialize outward.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
