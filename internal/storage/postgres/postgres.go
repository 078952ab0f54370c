// Package postgres provides PostgreSQL persistence for the gallery using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/beastbattle/internal/config"
)

// ApplicationName tags gallery sessions in pg_stat_activity.
const ApplicationName = "beastbattle-gallery"

// ErrSchemaMissing is returned by Ready when the gallery table has not been
// created. Run cmd/migrate against the database.
var ErrSchemaMissing = errors.New("gallery_entries table missing; run migrations")

// Pool wraps the pgx connection pool the gallery repository runs on.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a pinged Pool or a non-nil error. The schema is not
// checked; call Ready for that.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Ready checks within timeout that the database answers and that the gallery
// table exists.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil, ErrSchemaMissing, or the connection error.
func (p *Pool) Ready(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var exists bool
	if err := p.pool.QueryRow(ctx,
		`SELECT to_regclass('gallery_entries') IS NOT NULL`).Scan(&exists); err != nil {
		return fmt.Errorf("checking gallery schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for the repository.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
