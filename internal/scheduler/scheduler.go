// Package scheduler runs periodic maintenance jobs for the payments service.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/railzwaylabs/payments/internal/clock"
	"github.com/railzwaylabs/payments/internal/config"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Register),
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	Subscriptions subscriptiondomain.Service
	Redis         *redis.Client `optional:"true"`
}

type job struct {
	name string
	run  func(ctx context.Context) (int, error)
}

type Scheduler struct {
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	subscriptions subscriptiondomain.Service
	leases        *leaser

	jobs []job

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func New(p Params) *Scheduler {
	s := &Scheduler{
		cfg:           p.Cfg,
		log:           p.Log.Named("scheduler"),
		clock:         p.Clock,
		subscriptions: p.Subscriptions,
	}
	// A shared lease only makes sense when replicas share redis.
	if p.Redis != nil && p.Cfg.TaskQueue.Driver == config.QueueDriverRedis {
		s.leases = newLeaser(p.Redis, p.Cfg.AppName)
	}
	s.jobs = []job{
		{name: "apply_due_cancellations", run: s.ApplyDueCancellationsJob},
	}
	return s
}

func Register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

func (s *Scheduler) interval() time.Duration {
	if s.cfg.Scheduler.Interval <= 0 {
		return time.Minute
	}
	return s.cfg.Scheduler.Interval
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info("scheduler started", zap.Duration("interval", s.interval()), zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job a single time. Failures are logged; the next tick retries.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, j := range s.jobs {
		s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	if s.leases != nil {
		ok, err := s.leases.acquire(ctx, j.name, s.interval())
		if err != nil {
			s.log.Warn("scheduler lease unavailable", zap.String("job", j.name), zap.Error(err))
			return
		}
		if !ok {
			s.log.Debug("job owned by another instance", zap.String("job", j.name))
			return
		}
	}

	started := s.clock.Now(ctx)
	processed, err := j.run(ctx)
	fields := []zap.Field{
		zap.String("job", j.name),
		zap.Int("processed", processed),
		zap.Duration("took", s.clock.Now(ctx).Sub(started)),
	}
	if err != nil {
		s.log.Error("scheduler job failed", append(fields, zap.Error(err))...)
		return
	}
	if processed > 0 {
		s.log.Info("scheduler job completed", fields...)
	}
}
