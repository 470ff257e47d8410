package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repositories accept an optional *gorm.DB so callers can run them inside a
// transaction. A nil db uses the repository's own handle. Finders return nil, nil
// when nothing matches.

type PaymentRepository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByGatewayID(ctx context.Context, db *gorm.DB, gatewayPaymentID string) (*Payment, error)
	UpdateStatusByGatewayID(ctx context.Context, db *gorm.DB, gatewayPaymentID string, status PaymentStatus) (int64, error)
}

type PaymentMethodRepository interface {
	Insert(ctx context.Context, db *gorm.DB, method *PaymentMethod) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*PaymentMethod, error)
	FindDefaultByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*PaymentMethod, error)
	FindDefault(ctx context.Context, db *gorm.DB, userID string) (*PaymentMethod, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]PaymentMethod, error)
	ClearDefault(ctx context.Context, db *gorm.DB, userID string) error
	SetDefault(ctx context.Context, db *gorm.DB, id snowflake.ID, isDefault bool) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (int64, error)
}
