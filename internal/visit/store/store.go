// Package store persists Visit records.
//
// Stores are interface-driven so services stay testable and persistence can
// swap between in-memory and postgres without rewiring business code. Stores
// return sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"github.com/google/uuid"

	"visitlog/internal/visit/models"
)

// Store is the persistence contract for visits.
type Store interface {
	Create(ctx context.Context, visit *models.Visit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Visit, error)

	// List returns visits ordered by entry time, newest first.
	List(ctx context.Context, limit, offset int) ([]*models.Visit, error)
	ListByStatus(ctx context.Context, active bool) ([]*models.Visit, error)
	ListRecent(ctx context.Context, n int) ([]*models.Visit, error)
	Count(ctx context.Context) (int, error)

	Update(ctx context.Context, visit *models.Visit) error

	// Execute atomically runs check then mutate against the stored record,
	// holding the store's lock (mutex or SELECT ... FOR UPDATE) across both.
	// The mutated record is persisted and returned. A check failure aborts
	// without mutation and its error is returned unchanged.
	Execute(ctx context.Context, id uuid.UUID, check func(*models.Visit) error, mutate func(*models.Visit)) (*models.Visit, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
