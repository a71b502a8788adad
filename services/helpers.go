package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/jacoblam121/tournament-arc/repositories"
)

// TxRunner runs a function inside one transaction that either fully
// commits or fully rolls back. It exists as an interface so service
// logic can be tested against in-memory repositories.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) RunInTx(ctx context.Context, fn func(tx repositories.SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = fn(tx); txErr != nil {
		return txErr
	}
	if err := tx.Commit(); err != nil {
		txErr = fmt.Errorf("failed to commit transaction: %w", err)
		return txErr
	}
	return nil
}

// runWithRetry retries fn on transient write conflicts with bounded
// exponential backoff. All other errors propagate immediately.
func runWithRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := 50 * time.Millisecond
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil || !repositories.IsRetryableWriteConflict(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
