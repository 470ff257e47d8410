package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// leaser hands out per-job redis leases so that only one replica runs a job
// per tick. Leases are never released early; they expire shortly before the
// next tick.
type leaser struct {
	client *redis.Client
	prefix string
}

func newLeaser(client *redis.Client, app string) *leaser {
	if app == "" {
		app = "payments"
	}
	return &leaser{client: client, prefix: app + ":scheduler:"}
}

func (l *leaser) acquire(ctx context.Context, name string, interval time.Duration) (bool, error) {
	key := l.prefix + name
	ttl := interval * 9 / 10
	if ttl <= 0 {
		ttl = time.Second
	}

	ok, err := l.client.SetNX(ctx, key, uuid.NewString(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	return ok, nil
}
