// Package models defines the staff account aggregate.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "visitlog/pkg/domain-errors"
)

const maxUsernameLen = 150

// User is a staff account that can manage the visitor log.
//
// Invariants:
//   - Username is non-empty, at most 150 characters, and unique
//   - PasswordHash is a bcrypt hash, never the plaintext
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize - contains bcrypt hash
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser constructs a user from an already-hashed password.
func NewUser(username, passwordHash string, isAdmin bool, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username cannot be empty")
	}
	if len(username) > maxUsernameLen {
		return nil, dErrors.New(dErrors.CodeValidation, "username must be 150 characters or less")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
	}, nil
}
