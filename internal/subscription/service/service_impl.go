package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/clock"
	"github.com/railzwaylabs/payments/internal/config"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const day = 24 * time.Hour

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID           *snowflake.Node
	clock           clock.Clock
	repo            subscriptiondomain.Repository
	gateway         gatewaydomain.Gateway
	defaultCurrency string
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	Gateway gatewaydomain.Gateway
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.DefaultCurrency))
	if currency == "" {
		currency = "ARS"
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("subscription.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		gateway:         p.Gateway,
		defaultCurrency: currency,
	}
}

// gatewayFrequency maps a plan interval onto the gateway's recurring vocabulary.
// Unknown units fall back to one month.
func gatewayFrequency(interval string, count int) (int, string) {
	switch interval {
	case subscriptiondomain.IntervalMonth:
		return count, "months"
	case subscriptiondomain.IntervalYear:
		return count, "years"
	case subscriptiondomain.IntervalDay:
		return count, "days"
	default:
		return 1, "months"
	}
}

// periodEnd uses fixed 30 and 365 day months and years, not calendar arithmetic.
func periodEnd(start time.Time, interval string, count int) time.Time {
	switch interval {
	case subscriptiondomain.IntervalMonth:
		return start.Add(time.Duration(30*count) * day)
	case subscriptiondomain.IntervalYear:
		return start.Add(time.Duration(365*count) * day)
	default:
		return start.Add(time.Duration(count) * day)
	}
}

func (s *Service) CreatePlan(ctx context.Context, input subscriptiondomain.CreatePlanInput) (*subscriptiondomain.Plan, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, subscriptiondomain.ErrInvalidPlanName
	}
	if input.Amount <= 0 {
		return nil, subscriptiondomain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != 3 {
		return nil, subscriptiondomain.ErrInvalidCurrency
	}
	interval := strings.ToLower(strings.TrimSpace(input.Interval))
	if interval == "" {
		interval = subscriptiondomain.IntervalMonth
	}
	count := input.IntervalCount
	if count == 0 {
		count = 1
	}
	if count < 0 {
		return nil, subscriptiondomain.ErrInvalidInterval
	}

	now := s.clock.Now(ctx)
	plan := &subscriptiondomain.Plan{
		ID:            s.genID.Generate(),
		Name:          name,
		Description:   input.Description,
		Amount:        input.Amount,
		Currency:      currency,
		Interval:      interval,
		IntervalCount: count,
		Gateway:       subscriptiondomain.GatewayMercadoPago,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertPlan(ctx, tx, plan); err != nil {
			return err
		}

		frequency, frequencyType := gatewayFrequency(interval, count)
		result, err := s.gateway.CreatePlan(ctx, gatewaydomain.PlanRequest{
			Reason:        plan.Name,
			Amount:        plan.Amount,
			Currency:      plan.Currency,
			Frequency:     frequency,
			FrequencyType: frequencyType,
		})
		if err != nil {
			s.log.Error("gateway plan creation failed", zap.String("plan_id", plan.ID.String()), zap.Error(err))
			return err
		}

		gatewayPlanID := result.ID
		plan.GatewayPlanID = &gatewayPlanID
		return s.repo.UpdatePlan(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("gateway_plan_id", *plan.GatewayPlanID),
	)
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]subscriptiondomain.Plan, error) {
	return s.repo.ListPlans(ctx, nil, activeOnly)
}

func (s *Service) GetPlan(ctx context.Context, id snowflake.ID) (*subscriptiondomain.Plan, error) {
	return s.repo.FindPlanByID(ctx, nil, id)
}

func (s *Service) CreateSubscription(ctx context.Context, input subscriptiondomain.CreateSubscriptionInput) (*subscriptiondomain.Subscription, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	if strings.TrimSpace(input.PayerEmail) == "" {
		return nil, subscriptiondomain.ErrInvalidPayerEmail
	}
	if strings.TrimSpace(input.CardTokenID) == "" {
		return nil, subscriptiondomain.ErrInvalidCardToken
	}

	plan, err := s.repo.FindPlanByID(ctx, nil, input.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, subscriptiondomain.ErrPlanNotFound
	}
	if !plan.Linked() {
		return nil, subscriptiondomain.ErrPlanNotLinked
	}

	now := s.clock.Now(ctx)
	sub := &subscriptiondomain.Subscription{
		ID:        s.genID.Generate(),
		PlanID:    plan.ID,
		UserID:    userID,
		Gateway:   subscriptiondomain.GatewayMercadoPago,
		Status:    subscriptiondomain.SubscriptionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return err
		}

		result, err := s.gateway.CreateSubscription(ctx, gatewaydomain.SubscriptionRequest{
			PlanID:            *plan.GatewayPlanID,
			Reason:            plan.Name,
			PayerEmail:        input.PayerEmail,
			CardTokenID:       input.CardTokenID,
			ExternalReference: sub.ID.String(),
			NotificationURL:   input.NotificationURL,
		})
		if err != nil {
			s.log.Error("gateway subscription creation failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("plan_id", plan.ID.String()),
				zap.Error(err),
			)
			return err
		}

		gatewaySubID := result.ID
		sub.GatewaySubscriptionID = &gatewaySubID
		sub.Status = subscriptiondomain.SubscriptionStatus(result.Status)
		if sub.Status == "" {
			sub.Status = subscriptiondomain.SubscriptionStatusPending
		}
		if result.Approved() {
			start := s.clock.Now(ctx)
			end := periodEnd(start, plan.Interval, plan.IntervalCount)
			sub.CurrentPeriodStart = &start
			sub.CurrentPeriodEnd = &end
		}
		sub.UpdatedAt = s.clock.Now(ctx)
		return s.repo.Update(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}

	if !sub.Status.Known() {
		s.log.Warn("unknown subscription status from gateway",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("status", string(sub.Status)),
		)
	}
	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("gateway_subscription_id", *sub.GatewaySubscriptionID),
		zap.String("status", string(sub.Status)),
	)
	return sub, nil
}

func (s *Service) GetSubscription(ctx context.Context, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return s.repo.FindByID(ctx, nil, id)
}

func (s *Service) ListSubscriptionsByUser(ctx context.Context, userID string) ([]subscriptiondomain.Subscription, error) {
	return s.repo.ListByUser(ctx, nil, userID)
}

// Cancel returns nil, nil for unknown or never gateway-linked subscriptions.
// With atPeriodEnd only the deferred flag is set and the gateway is not called.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID, atPeriodEnd bool) (*subscriptiondomain.Subscription, error) {
	var out *subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub == nil || sub.GatewaySubscriptionID == nil || *sub.GatewaySubscriptionID == "" {
			return nil
		}

		now := s.clock.Now(ctx)
		if atPeriodEnd {
			sub.CancelAtPeriodEnd = true
			sub.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, sub); err != nil {
				return err
			}
			out = sub
			return nil
		}

		sub.Status = subscriptiondomain.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		if _, err := s.gateway.CancelSubscription(ctx, *sub.GatewaySubscriptionID); err != nil {
			s.log.Error("gateway subscription cancel failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("gateway_subscription_id", *sub.GatewaySubscriptionID),
				zap.Error(err),
			)
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil {
		s.log.Info("subscription cancellation recorded",
			zap.String("subscription_id", out.ID.String()),
			zap.Bool("at_period_end", atPeriodEnd),
		)
	}
	return out, nil
}

func (s *Service) UpdateStatus(ctx context.Context, gatewaySubscriptionID string, status subscriptiondomain.SubscriptionStatus) (*subscriptiondomain.Subscription, error) {
	var out *subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByGatewayID(ctx, tx, gatewaySubscriptionID)
		if err != nil || sub == nil {
			return err
		}
		sub.Status = status
		sub.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.log.Info("subscription status updated",
			zap.String("gateway_subscription_id", gatewaySubscriptionID),
			zap.String("status", string(status)),
		)
	}
	return out, nil
}

func (s *Service) ApplyDueCancellations(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.ListDueCancellations(ctx, nil, s.clock.Now(ctx), limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, sub := range due {
		if err := ctx.Err(); err != nil {
			return cancelled, err
		}
		if _, err := s.Cancel(ctx, sub.ID, false); err != nil {
			s.log.Warn("deferred cancellation failed, will retry",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
