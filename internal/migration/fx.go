package migration

import (
	"context"

	"github.com/railzwaylabs/payments/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates on start. Only the migrate command and the all-in-one
// process include it.
var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return Run(ctx, conn, cfg.Database.Driver, log.Named("migration"))
			},
		})
	}),
)

// SchemaGate blocks startup of processes that do not migrate themselves.
var SchemaGate = fx.Module("migrations.gate",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return CheckSchema(ctx, conn, cfg.Database.Driver)
			},
		})
	}),
)
