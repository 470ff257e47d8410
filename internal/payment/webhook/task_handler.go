package webhook

import (
	"context"
	"fmt"

	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"github.com/railzwaylabs/payments/internal/taskqueue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type TaskHandlerParams struct {
	fx.In

	Log           *zap.Logger
	Payments      paymentdomain.Service
	Subscriptions subscriptiondomain.Service
}

// TaskHandler applies reconciled statuses to local records.
type TaskHandler struct {
	log           *zap.Logger
	payments      paymentdomain.Service
	subscriptions subscriptiondomain.Service
}

func NewTaskHandler(p TaskHandlerParams) taskqueue.Handler {
	return &TaskHandler{
		log:           p.Log.Named("payment.webhook.task"),
		payments:      p.Payments,
		subscriptions: p.Subscriptions,
	}
}

func (h *TaskHandler) Handle(ctx context.Context, task taskqueue.Task) error {
	switch task.Kind {
	case taskqueue.KindPaymentStatus:
		payment, err := h.payments.UpdateStatus(ctx, task.GatewayID, paymentdomain.PaymentStatus(task.Status))
		if err != nil {
			return err
		}
		if payment == nil {
			h.log.Info("no local payment for gateway id", zap.String("gateway_payment_id", task.GatewayID))
		}
		return nil
	case taskqueue.KindSubscriptionStatus:
		sub, err := h.subscriptions.UpdateStatus(ctx, task.GatewayID, subscriptiondomain.SubscriptionStatus(task.Status))
		if err != nil {
			return err
		}
		if sub == nil {
			h.log.Info("no local subscription for gateway id", zap.String("gateway_subscription_id", task.GatewayID))
		}
		return nil
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}
