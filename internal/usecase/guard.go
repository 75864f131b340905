package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/iho/factoryledger/internal/domain"
)

// MemoryGuard is an in-process ProcessingGuard. It blocks duplicate submissions of
// the same transaction id and never serializes unrelated ids.
type MemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewMemoryGuard creates a new MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{active: make(map[string]struct{})}
}

// Acquire marks key as in flight until release is called.
func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionInFlight, key)
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, nil
}
