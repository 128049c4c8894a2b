// Package testutil holds helpers shared by unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/linkhub/linkhub/internal/model"
)

// RequireEnv returns the value of key, skipping the test when it is unset.
// Integration tests use it for DATABASE_URL and REDIS_URL.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// dbTestLockKey serializes integration tests that share one database.
const dbTestLockKey int64 = 0x6c696e6b // "link"

// AcquireDBLock holds a session-level advisory lock on a dedicated
// connection until the returned release func is called.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (release func() error, err error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", dbTestLockKey); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	return func() error {
		defer conn.Release()
		_, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", dbTestLockKey)
		if err != nil {
			return fmt.Errorf("advisory unlock: %w", err)
		}
		return nil
	}, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// NewMiniRedis starts an in-process Redis server and returns a client for it.
// Both are shut down when the test ends.
func NewMiniRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

var seq atomic.Int64

// NewTestUser creates a user with a unique username and email.
// The password hash is a placeholder and will not verify.
func NewTestUser(t testing.TB, prefix string) *model.User {
	t.Helper()
	n := seq.Add(1)
	stamp := time.Now().UnixNano() % 1_000_000_000
	username := fmt.Sprintf("%s_%d_%d", prefix, stamp, n)
	if len(username) > 32 {
		username = username[len(username)-32:]
	}
	return &model.User{
		Username:     username,
		Email:        fmt.Sprintf("%s.%d.%d@example.com", prefix, stamp, n),
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c29tZXNhbHQ$cGxhY2Vob2xkZXJoYXNocGxhY2Vob2xkZXI",
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}
