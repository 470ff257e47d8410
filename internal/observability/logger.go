package observability

import (
	"context"

	"github.com/railzwaylabs/payments/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewMetrics),
	fx.Provide(NewTracerProvider),
)

// NewLogger builds the process logger. Production uses JSON output at info level,
// everything else gets the development console encoder.
func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.With(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.AppVersion),
		zap.String("env", cfg.Env),
	)

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
