package repomanager

import (
	"context"

	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/users"
)

// RepositoryManager vends the repositories used by the domain service.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Users() users.Repository
	Posts() posts.Repository
	// Snapshot runs fn against a posts repository whose reads all observe the
	// same committed state. fn may be run more than once and must only read.
	Snapshot(ctx context.Context, fn func(ctx context.Context, posts posts.Repository) error) error
	Close() error
}
