package repositories

import (
	"context"
	"fmt"
	"hash/fnv"
)

// ScopeLocker provides mutual exclusion for bulk destructive operations
// (event-scoped or global leaderboard/rating resets).
type ScopeLocker interface {
	// TryLockScope acquires a transaction-scoped advisory lock without
	// blocking. It returns false when another session already holds the
	// scope; the lock is released automatically at commit or rollback,
	// even on failure paths.
	TryLockScope(ctx context.Context, tx SQLExecutor, scope string) (bool, error)
}

type postgresScopeLocker struct{}

func NewPostgresScopeLocker() ScopeLocker {
	return postgresScopeLocker{}
}

// lockKey maps a scope name onto the 64-bit advisory lock keyspace.
func lockKey(scope string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(scope))
	return int64(h.Sum64())
}

func (postgresScopeLocker) TryLockScope(ctx context.Context, tx SQLExecutor, scope string) (bool, error) {
	var acquired bool
	err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockKey(scope)).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("failed to acquire advisory lock for scope %q: %w", scope, err)
	}
	return acquired, nil
}
