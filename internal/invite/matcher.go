package invite

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// pairKey orders two ids so (a, b) and (b, a) share a key.
func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

// MemoryMatcher keeps likes and matches in process.
type MemoryMatcher struct {
	mu      sync.Mutex
	likes   map[[2]uuid.UUID]bool
	matches map[[2]uuid.UUID]uuid.UUID
}

func NewMemoryMatcher() *MemoryMatcher {
	return &MemoryMatcher{
		likes:   make(map[[2]uuid.UUID]bool),
		matches: make(map[[2]uuid.UUID]uuid.UUID),
	}
}

// Like records that from likes to.
func (m *MemoryMatcher) Like(from, to uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.likes[[2]uuid.UUID{from, to}] = true
}

func (m *MemoryMatcher) CreateMatchIfMutualLike(_ context.Context, a, b uuid.UUID) (*uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(a, b)
	if id, ok := m.matches[key]; ok {
		return &id, nil
	}
	if !m.likes[[2]uuid.UUID{a, b}] || !m.likes[[2]uuid.UUID{b, a}] {
		return nil, nil
	}
	id := uuid.New()
	m.matches[key] = id
	return &id, nil
}
