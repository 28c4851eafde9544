package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"visitlog/internal/auth/models"
	"visitlog/pkg/platform/sentinel"
)

// InMemory is a map-backed UserStore for tests and single-node development.
type InMemory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[uuid.UUID]models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == user.Username {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
