package migration

import (
	"context"
	"fmt"

	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	"gorm.io/gorm"
)

const (
	defaultMethodIndex  = "uq_payment_methods_user_default"
	defaultOwnerColumn  = "default_owner"
	paymentMethodsTable = "payment_methods"
)

// ensureDefaultMethodIndex adds the one-default-per-user guard that the postgres
// migration declares as a partial unique index. MySQL has no partial indexes, so
// it indexes a generated column that is NULL for non-default rows.
func ensureDefaultMethodIndex(ctx context.Context, conn *gorm.DB, driver string) error {
	db := conn.WithContext(ctx)
	m := db.Migrator()
	model := &paymentdomain.PaymentMethod{}
	if m.HasIndex(model, defaultMethodIndex) {
		return nil
	}

	switch driver {
	case "sqlite":
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON %s (user_id) WHERE is_default",
			defaultMethodIndex, paymentMethodsTable,
		)).Error
	case "mysql":
		if !m.HasColumn(model, defaultOwnerColumn) {
			if err := db.Exec(fmt.Sprintf(
				"ALTER TABLE %s ADD COLUMN %s VARCHAR(255) AS (CASE WHEN is_default THEN user_id END) VIRTUAL",
				paymentMethodsTable, defaultOwnerColumn,
			)).Error; err != nil {
				return err
			}
		}
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON %s (%s)",
			defaultMethodIndex, paymentMethodsTable, defaultOwnerColumn,
		)).Error
	default:
		return fmt.Errorf("no default payment method index for driver %q", driver)
	}
}
