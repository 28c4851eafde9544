// Package revocation tracks revoked token IDs until their natural expiry.
package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visitlog/pkg/platform/sentinel"
)

// TokenRevocationList records token IDs (JTIs) that must no longer be
// accepted, each entry expiring when the token itself would have.
type TokenRevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// InMemoryTRL is a map-backed revocation list for tests and single-node
// development. Expired entries are dropped lazily on lookup.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{revoked: make(map[string]time.Time)}
}

func (t *InMemoryTRL) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}
