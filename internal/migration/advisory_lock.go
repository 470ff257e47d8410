package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const advisoryLockKey int64 = 7_310_552_019

// ErrLocked is returned when another process is already migrating.
var ErrLocked = errors.New("another migration process holds the advisory lock")

// acquireAdvisoryLock pins one pooled connection for the lock's lifetime;
// session-level advisory locks are tied to the connection that took them.
func acquireAdvisoryLock(ctx context.Context, db *sql.DB) (func(context.Context) error, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		_ = conn.Close()
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		defer conn.Close()
		var released bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey).Scan(&released); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		if !released {
			return errors.New("advisory lock was not held by this session")
		}
		return nil
	}, nil
}
