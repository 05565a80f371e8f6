// Package repomanager provides RepositoryManager implementations for
// PostgreSQL and for an in-process store, wiring together repository
// constructors, snapshot reads and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/blogd/internal/dbx"
	"github.com/dmitrijs2005/blogd/internal/server/migrations"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/posts"
	"github.com/dmitrijs2005/blogd/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories. Every
// statement is retried on transient connectivity failures per policy.
type PostgresRepositoryManager struct {
	db     *sql.DB
	policy dbx.RetryPolicy
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string, policy dbx.RetryPolicy) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := dbx.Retry(ctx, policy, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB, policy dbx.RetryPolicy) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db, policy: policy}
}

// Users returns a users.Repository bound to the pool.
func (m *PostgresRepositoryManager) Users() users.Repository {
	return &retryingUsers{next: users.NewPostgresRepository(m.db), policy: m.policy}
}

// Posts returns a posts.Repository bound to the pool.
func (m *PostgresRepositoryManager) Posts() posts.Repository {
	return &retryingPosts{next: posts.NewPostgresRepository(m.db), policy: m.policy}
}

// Snapshot runs fn in a read-only repeatable-read transaction. A transient
// failure retries the whole transaction.
func (m *PostgresRepositoryManager) Snapshot(ctx context.Context, fn func(ctx context.Context, posts posts.Repository) error) error {
	return dbx.Retry(ctx, m.policy, func(ctx context.Context) error {
		return dbx.WithTx(ctx, m.db, dbx.SnapshotTxOptions, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(ctx, posts.NewPostgresRepository(tx))
		})
	})
}

func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the managed database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}
