package db

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/payments/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormprom "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

func dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
}

// Open connects with the configured driver and applies pool limits. It does not
// install lifecycle hooks, so it is usable from one-shot commands too.
func Open(cfg config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if cfg.IsProduction() {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	conn, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Database.Driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return conn, nil
}

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, tp trace.TracerProvider) (*gorm.DB, error) {
	conn, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	// Connection pool stats end up on the default registry next to gorm's own series.
	if err := conn.Use(gormprom.New(gormprom.Config{
		DBName:          cfg.AppName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		log.Warn("db metrics plugin disabled", zap.Error(err))
	}

	// Bound values carry card tokens and payer emails; spans keep only the statement.
	if err := conn.Use(otelgorm.NewPlugin(
		otelgorm.WithTracerProvider(tp),
		otelgorm.WithDBName(cfg.AppName),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		log.Warn("db tracing plugin disabled", zap.Error(err))
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	log.Info("database connected", zap.String("driver", cfg.Database.Driver))
	return conn, nil
}
