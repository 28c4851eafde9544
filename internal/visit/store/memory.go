package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"visitlog/internal/visit/models"
	"visitlog/pkg/platform/sentinel"
)

// InMemory keeps visits in a map guarded by a RWMutex. It favors clarity over
// performance and backs unit tests and local development.
type InMemory struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]models.Visit
}

func NewInMemory() *InMemory {
	return &InMemory{visits: make(map[uuid.UUID]models.Visit)}
}

func (s *InMemory) Create(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[visit.ID]; ok {
		return sentinel.ErrConflict
	}
	s.visits[visit.ID] = clone(visit)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.visits[id]; ok {
		out := clone(&v)
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, limit, offset int) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedLocked()
	if offset >= len(all) {
		return []*models.Visit{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) ListByStatus(_ context.Context, active bool) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Visit, 0)
	for _, v := range s.sortedLocked() {
		if (v.ExitTime == nil) == active {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *InMemory) ListRecent(_ context.Context, n int) ([]*models.Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedLocked()
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visits), nil
}

func (s *InMemory) Update(_ context.Context, visit *models.Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[visit.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.visits[visit.ID] = clone(visit)
	return nil
}

// Execute holds the write lock across check and mutate so concurrent
// departure marking serializes: the loser observes the winner's write.
func (s *InMemory) Execute(_ context.Context, id uuid.UUID, check func(*models.Visit) error, mutate func(*models.Visit)) (*models.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.visits[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := clone(&current)
	if err := check(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.visits[id] = clone(&working)
	return &working, nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.visits, id)
	return nil
}

// sortedLocked returns copies ordered newest entry first. Callers must hold
// at least the read lock.
func (s *InMemory) sortedLocked() []*models.Visit {
	out := make([]*models.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		c := clone(&v)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

// clone copies a visit so callers never alias stored state.
func clone(v *models.Visit) models.Visit {
	out := *v
	if v.ExitTime != nil {
		t := *v.ExitTime
		out.ExitTime = &t
	}
	return out
}
