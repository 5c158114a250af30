// Package repository is the PostgreSQL store for subscribers and operators.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

// applicationName tags server-side sessions in pg_stat_activity.
const applicationName = "letterbox"

// Repository implements the subscription and user stores over a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and verifies it with a ping.
// Pool sizing in the URL (pool_max_conns etc.) takes precedence over the defaults.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if config.ConnConfig.RuntimeParams["application_name"] == "" {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	if !strings.Contains(databaseURL, "pool_max_conns") {
		config.MaxConns = 10
	}
	if !strings.Contains(databaseURL, "pool_min_conns") {
		config.MinConns = 2
	}
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks database connectivity. It backs the readiness check.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally restricted to a named constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
