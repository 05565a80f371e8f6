package repomanager

import (
	"context"

	"github.com/dmitrijs2005/blogd/internal/clock"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/memory"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps all data in process. It is used when no
// database DSN is configured and by tests.
type InMemoryRepositoryManager struct {
	store *memory.Store
}

func NewInMemoryRepositoryManager(clk clock.Clock) *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memory.NewStore(clk)}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *InMemoryRepositoryManager) Close() error                        { return nil }

func (m *InMemoryRepositoryManager) Users() users.Repository { return m.store.Users() }
func (m *InMemoryRepositoryManager) Posts() posts.Repository { return m.store.Posts() }

func (m *InMemoryRepositoryManager) Snapshot(ctx context.Context, fn func(ctx context.Context, posts posts.Repository) error) error {
	return fn(ctx, m.store.Snapshot().Posts())
}
