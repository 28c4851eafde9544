// Package store persists staff accounts.
package store

import (
	"context"

	"github.com/google/uuid"

	"visitlog/internal/auth/models"
)

// UserStore persists staff accounts. Implementations return
// sentinel.ErrNotFound for missing users and sentinel.ErrConflict for
// duplicate usernames.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}
