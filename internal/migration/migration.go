package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&subscriptiondomain.Plan{},
		&subscriptiondomain.Subscription{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentMethod{},
	}
}

// Run brings the schema up to date. Postgres applies the embedded SQL under an
// advisory lock; mysql and sqlite use gorm AutoMigrate on the models.
func Run(ctx context.Context, conn *gorm.DB, driver string, log *zap.Logger) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	if driver != "postgres" {
		if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := ensureDefaultMethodIndex(ctx, conn, driver); err != nil {
			return fmt.Errorf("default payment method index: %w", err)
		}
		log.Info("schema auto-migrated", zap.String("driver", driver))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	unlock, err := acquireAdvisoryLock(ctx, sqlDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.Background()); err != nil {
			log.Warn("release migration lock", zap.Error(err))
		}
	}()

	state, err := Describe()
	if err != nil {
		return err
	}

	version, err := up(sqlDB)
	if err != nil {
		return err
	}
	if version != state.Latest {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", version, state.Latest)
	}

	if err := recordSchemaState(ctx, sqlDB, state); err != nil {
		return err
	}

	log.Info("schema migrated", zap.Uint("version", version), zap.String("checksum", state.Checksum))
	return nil
}

func up(db *sql.DB) (uint, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return 0, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}

	if _, err := currentVersion(migrator); err != nil {
		return 0, err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return currentVersion(migrator)
}

func currentVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
