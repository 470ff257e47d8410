package payment

import (
	"github.com/railzwaylabs/payments/internal/payment/repository"
	paymentservice "github.com/railzwaylabs/payments/internal/payment/service"
	"github.com/railzwaylabs/payments/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
	fx.Provide(paymentservice.NewPaymentMethodService),
	fx.Provide(webhook.NewService),
	fx.Provide(webhook.NewTaskHandler),
)
