package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	CreatePlan(ctx context.Context, input CreatePlanInput) (*Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetPlan(ctx context.Context, id snowflake.ID) (*Plan, error)

	CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*Subscription, error)
	GetSubscription(ctx context.Context, id snowflake.ID) (*Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID string) ([]Subscription, error)
	Cancel(ctx context.Context, id snowflake.ID, atPeriodEnd bool) (*Subscription, error)
	UpdateStatus(ctx context.Context, gatewaySubscriptionID string, status SubscriptionStatus) (*Subscription, error)

	// ApplyDueCancellations cancels at the gateway every subscription whose deferred
	// cancellation has come due, returning how many were cancelled.
	ApplyDueCancellations(ctx context.Context, limit int) (int, error)
}

type CreatePlanInput struct {
	Name          string
	Description   *string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int
}

type CreateSubscriptionInput struct {
	PlanID          snowflake.ID
	UserID          string
	PayerEmail      string
	CardTokenID     string
	NotificationURL string
}

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	UpdatePlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	ListPlans(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Plan, error)

	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	FindByGatewayID(ctx context.Context, db *gorm.DB, gatewaySubscriptionID string) (*Subscription, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]Subscription, error)
	ListDueCancellations(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Subscription, error)
}

var (
	ErrInvalidPlanName      = errors.New("invalid_plan_name")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidInterval      = errors.New("invalid_interval")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidPayerEmail    = errors.New("invalid_payer_email")
	ErrInvalidCardToken     = errors.New("invalid_card_token")
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrPlanNotLinked        = errors.New("plan_not_linked_to_gateway")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
