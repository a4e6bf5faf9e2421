package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool represents the subset of pgxpool.Pool used by the repositories.
//
// This allows tests to supply a lightweight mock implementation without
// changing the public interface of the store package.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool PgxPool

	Users      UserRepository
	Tasks      TaskRepository
	Sessions   SessionRepository
	FeedTokens FeedTokenRepository
	Usage      UsageRepository
}

// New wires concrete repository implementations with a shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return NewWithPool(pool)
}

// NewWithPool builds a Store on any PgxPool implementation.
func NewWithPool(pool PgxPool) *Store {
	return &Store{
		pool:       pool,
		Users:      &userRepo{pool: pool},
		Tasks:      &taskRepo{pool: pool},
		Sessions:   &sessionRepo{pool: pool},
		FeedTokens: &feedTokenRepo{pool: pool},
		Usage:      &usageRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}
