// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/letterbox/letterbox/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// TruncateTables empties the given tables.
func TruncateTables(ctx context.Context, pool *pgxpool.Pool, tables ...string) error {
	for _, table := range tables {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestSubscriber creates a pending subscriber with a unique email and token.
func NewTestSubscriber(t testing.TB) *model.Subscriber {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := ulid.Make().String()
	return &model.Subscriber{
		ID:                id,
		Name:              "Ursula Le Guin",
		Email:             fmt.Sprintf("reader-%s@example.com", id),
		ConfirmationToken: UniqueToken(),
		Status:            model.StatusPendingConfirmation,
		SubscribedAt:      now,
	}
}

// NewTestUser creates an operator with a placeholder hash.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	return &model.User{
		ID:           uuid.NewString(),
		Username:     UniqueID("operator"),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$placeholder$placeholder",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// UniqueToken returns a 25-character alphanumeric token unique to this process.
func UniqueToken() string {
	return ulid.Make().String()[1:]
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
