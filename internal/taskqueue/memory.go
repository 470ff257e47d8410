package taskqueue

import (
	"context"
	"errors"
	"sync"

	"github.com/railzwaylabs/payments/internal/observability"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("taskqueue: queue full")

// MemoryQueue is a buffered channel queue for single-process deployments.
// Tasks still buffered at shutdown are lost.
type MemoryQueue struct {
	tasks   chan Task
	workers int
	log     *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewMemoryQueue(size, workers int, log *zap.Logger, metrics *observability.Metrics) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	return &MemoryQueue{
		tasks:   make(chan Task, size),
		workers: workers,
		log:     log.Named("taskqueue.memory"),
		metrics: metrics,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Start(handler Handler) error {
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
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-q.tasks:
					dispatch(ctx, q.log, q.metrics, handler, task)
				}
			}
		}()
	}
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
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
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs the handler synchronously inside Enqueue. Tests use it to observe
// follow-up work deterministically.
type Inline struct {
	mu      sync.Mutex
	handler Handler
	Tasks   []Task
}

func (q *Inline) Enqueue(ctx context.Context, task Task) error {
	q.mu.Lock()
	q.Tasks = append(q.Tasks, task)
	h := q.handler
	q.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Handle(ctx, task)
}

func (q *Inline) Start(handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	return nil
}

func (q *Inline) Stop(context.Context) error { return nil }

var (
	_ Queue = (*RedisQueue)(nil)
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = (*Inline)(nil)
)
