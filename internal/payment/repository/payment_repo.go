package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"gorm.io/gorm"
)

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) domain.PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Save(payment).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	if db == nil {
		db = r.db
	}
	var payment domain.Payment
	if err := db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) FindByGatewayID(ctx context.Context, db *gorm.DB, gatewayPaymentID string) (*domain.Payment, error) {
	if db == nil {
		db = r.db
	}
	var payment domain.Payment
	if err := db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) UpdateStatusByGatewayID(ctx context.Context, db *gorm.DB, gatewayPaymentID string, status domain.PaymentStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		Update("status", status)
	return res.RowsAffected, res.Error
}
