package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/clock"
	"github.com/railzwaylabs/payments/internal/config"
	"github.com/railzwaylabs/payments/internal/gateway/mercadopago"
	"github.com/railzwaylabs/payments/internal/migration"
	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/railzwaylabs/payments/internal/payment"
	"github.com/railzwaylabs/payments/internal/redis"
	"github.com/railzwaylabs/payments/internal/scheduler"
	"github.com/railzwaylabs/payments/internal/server"
	"github.com/railzwaylabs/payments/internal/subscription"
	"github.com/railzwaylabs/payments/internal/taskqueue"
	"github.com/railzwaylabs/payments/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "payments",
		Short:        "Payments service CLI",
		Version:      readVersionFromEnv(),
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newWorkerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(serveOptions()...).Run()
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume reconciliation tasks and run scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(workerOptions()...).Run()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then the API, task workers and scheduler in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			fx.New(allOptions()...).Run()
			return nil
		},
	}
}

func baseOptions() []fx.Option {
	return []fx.Option{
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
	}
}

// domainOptions wires every service a request or task can reach.
func domainOptions() []fx.Option {
	return []fx.Option{
		clock.Module,
		redis.Module,
		mercadopago.Module,
		taskqueue.Module,
		payment.Module,
		subscription.Module,
	}
}

func serveOptions() []fx.Option {
	opts := append(baseOptions(), domainOptions()...)
	return append(opts,
		migration.SchemaGate,
		server.Module,
		fx.Invoke(taskqueue.RunInProcessWorkers),
	)
}

func workerOptions() []fx.Option {
	opts := append(baseOptions(), domainOptions()...)
	return append(opts,
		migration.SchemaGate,
		scheduler.Module,
		fx.Invoke(taskqueue.RunWorkers),
	)
}

func allOptions() []fx.Option {
	opts := append(baseOptions(), domainOptions()...)
	return append(opts,
		migration.SchemaGate,
		server.Module,
		scheduler.Module,
		fx.Invoke(taskqueue.RunWorkers),
	)
}

func runMigrate() error {
	app := fx.New(append(baseOptions(), migration.Module)...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return app.Stop(context.Background())
}

func registerSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := strings.TrimSpace(os.Getenv("NODE_ID")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid NODE_ID %q: %w", raw, err)
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
