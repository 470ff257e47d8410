package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQueue is a list-backed queue: producers LPUSH, workers BRPOP.
type RedisQueue struct {
	client      *redis.Client
	name        string
	workers     int
	pollTimeout time.Duration

	log     *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, name string, workers int, log *zap.Logger, metrics *observability.Metrics) *RedisQueue {
	if workers <= 0 {
		workers = 1
	}
	return &RedisQueue{
		client:      client,
		name:        name,
		workers:     workers,
		pollTimeout: time.Second,
		log:         log.Named("taskqueue.redis"),
		metrics:     metrics,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.client.LPush(ctx, q.name, data).Err()
}

// Pop blocks up to timeout for the next task. It returns nil, nil on timeout.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop task: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *RedisQueue) Start(handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("taskqueue: already started")
	}
	q.started = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i, handler)
	}
	q.log.Info("workers started", zap.String("queue", q.name), zap.Int("workers", q.workers))
	return nil
}

func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("workers stopped", zap.String("queue", q.name))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *RedisQueue) worker(ctx context.Context, id int, handler Handler) {
	defer q.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := q.Pop(ctx, q.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.log.Warn("pop failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.pollTimeout):
			}
			continue
		}
		if task == nil {
			continue
		}

		dispatch(ctx, q.log, q.metrics, handler, *task)
	}
}

func dispatch(ctx context.Context, log *zap.Logger, metrics *observability.Metrics, handler Handler, task Task) {
	err := handler.Handle(ctx, task)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("gateway_id", task.GatewayID),
			zap.Error(err),
		)
	}
	if metrics != nil {
		metrics.TasksHandled.WithLabelValues(string(task.Kind), outcome).Inc()
	}
}
