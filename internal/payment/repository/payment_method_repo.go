package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"gorm.io/gorm"
)

type paymentMethodRepo struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) domain.PaymentMethodRepository {
	return &paymentMethodRepo{db: db}
}

func (r *paymentMethodRepo) Insert(ctx context.Context, db *gorm.DB, method *domain.PaymentMethod) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).Create(method).Error
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.PaymentMethod, error) {
	return r.first(ctx, db, "id = ? AND user_id = ?", id, userID)
}

func (r *paymentMethodRepo) FindDefaultByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.PaymentMethod, error) {
	return r.first(ctx, db, "id = ? AND user_id = ? AND is_default = ?", id, userID, true)
}

func (r *paymentMethodRepo) FindDefault(ctx context.Context, db *gorm.DB, userID string) (*domain.PaymentMethod, error) {
	return r.first(ctx, db, "user_id = ? AND is_default = ?", userID, true)
}

func (r *paymentMethodRepo) first(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.PaymentMethod, error) {
	if db == nil {
		db = r.db
	}
	var method domain.PaymentMethod
	if err := db.WithContext(ctx).Where(query, args...).First(&method).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

func (r *paymentMethodRepo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.PaymentMethod, error) {
	if db == nil {
		db = r.db
	}
	var methods []domain.PaymentMethod
	if err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// ClearDefault unsets the default flag on every method the user owns.
func (r *paymentMethodRepo) ClearDefault(ctx context.Context, db *gorm.DB, userID string) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).
		Model(&domain.PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *paymentMethodRepo) SetDefault(ctx context.Context, db *gorm.DB, id snowflake.ID, isDefault bool) error {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx).
		Model(&domain.PaymentMethod{}).
		Where("id = ?", id).
		Update("is_default", isDefault).Error
}

func (r *paymentMethodRepo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.PaymentMethod{})
	return res.RowsAffected, res.Error
}
