package taskqueue

import (
	"context"

	"github.com/railzwaylabs/payments/internal/config"
	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("taskqueue",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *observability.Metrics `optional:"true"`
	Redis   *redis.Client          `optional:"true"`
}

func New(p Params) Queue {
	qc := p.Cfg.TaskQueue
	if qc.Driver == config.QueueDriverRedis && p.Redis != nil {
		return NewRedisQueue(p.Redis, qc.Name, qc.Workers, p.Log, p.Metrics)
	}
	if qc.Driver == config.QueueDriverRedis {
		p.Log.Warn("redis task queue requested without a redis client, using in-memory queue")
	}
	return NewMemoryQueue(0, qc.Workers, p.Log, p.Metrics)
}

// RunWorkers consumes the queue for the lifetime of the fx app.
func RunWorkers(lc fx.Lifecycle, q Queue, h Handler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return q.Start(h)
		},
		OnStop: func(ctx context.Context) error {
			return q.Stop(ctx)
		},
	})
}

// RunInProcessWorkers starts consumers inside the API process when the queue
// lives in memory, since no separate worker can reach it.
func RunInProcessWorkers(lc fx.Lifecycle, cfg config.Config, q Queue, h Handler) {
	if cfg.TaskQueue.Driver != config.QueueDriverMemory {
		return
	}
	RunWorkers(lc, q, h)
}
