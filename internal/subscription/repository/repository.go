package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if db == nil {
		db = r.db
	}
	return db.WithContext(ctx)
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return r.conn(ctx, db).Create(plan).Error
}

func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return r.conn(ctx, db).Save(plan).Error
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	if err := r.conn(ctx, db).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ListPlans(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Plan, error) {
	q := r.conn(ctx, db)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var plans []domain.Plan
	if err := q.Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return r.conn(ctx, db).Omit("Plan").Create(sub).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return r.conn(ctx, db).Omit("Plan").Save(sub).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := r.conn(ctx, db).First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByGatewayID(ctx context.Context, db *gorm.DB, gatewaySubscriptionID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := r.conn(ctx, db).
		Where("gateway_subscription_id = ?", gatewaySubscriptionID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := r.conn(ctx, db).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListDueCancellations returns gateway-linked subscriptions flagged for deferred
// cancellation whose current period ended at or before now.
func (r *repo) ListDueCancellations(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Subscription, error) {
	q := r.conn(ctx, db).
		Where("cancel_at_period_end = ?", true).
		Where("status <> ?", domain.SubscriptionStatusCancelled).
		Where("gateway_subscription_id IS NOT NULL").
		Where("current_period_end IS NOT NULL AND current_period_end <= ?", now).
		Order("current_period_end ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var subs []domain.Subscription
	if err := q.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
