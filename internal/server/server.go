// Package server exposes the payments API over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/payments/internal/config"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/observability"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	"github.com/railzwaylabs/payments/internal/payment/webhook"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(Register),
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	DB      *gorm.DB               `optional:"true"`
	Metrics *observability.Metrics `optional:"true"`

	PaymentSvc       paymentdomain.Service
	PaymentMethodSvc paymentdomain.PaymentMethodService
	SubscriptionSvc  subscriptiondomain.Service
	Catalog          gatewaydomain.Catalog
	Webhooks         webhook.Reconciler
}

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	metrics *observability.Metrics
	engine  *gin.Engine

	paymentSvc       paymentdomain.Service
	paymentMethodSvc paymentdomain.PaymentMethodService
	subscriptionSvc  subscriptiondomain.Service
	catalog          gatewaydomain.Catalog
	webhooks         webhook.Reconciler
}

func New(p Params) *Server {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:              p.Cfg,
		log:              p.Log.Named("server"),
		db:               p.DB,
		metrics:          p.Metrics,
		engine:           gin.New(),
		paymentSvc:       p.PaymentSvc,
		paymentMethodSvc: p.PaymentMethodSvc,
		subscriptionSvc:  p.SubscriptionSvc,
		catalog:          p.Catalog,
		webhooks:         p.Webhooks,
	}

	s.engine.Use(gin.Recovery(), s.RequestMetrics(), s.RequestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.RegisterSystemRoutes()

	api := s.engine.Group("/api/v1")

	// Gateway notifications are authenticated by the gateway, not by our key.
	api.POST("/webhooks/mercadopago", s.HandleMercadoPagoWebhook)

	protected := api.Group("", s.APIKeyRequired())

	payments := protected.Group("/payments")
	payments.POST("", s.CreatePayment)
	payments.POST("/with-saved-method", s.CreatePaymentWithSavedMethod)
	payments.GET("/:id", s.GetPayment)

	methods := protected.Group("/payment-methods")
	methods.POST("", s.CreatePaymentMethod)
	methods.GET("/user/:user_id", s.ListPaymentMethods)
	methods.GET("/user/:user_id/default", s.GetDefaultPaymentMethod)
	methods.GET("/:id", s.GetPaymentMethod)
	methods.PUT("/:id", s.UpdatePaymentMethod)
	methods.DELETE("/:id", s.DeletePaymentMethod)

	subs := protected.Group("/subscriptions")
	subs.GET("/plans", s.ListPlans)
	subs.POST("/plans", s.CreatePlan)
	subs.GET("/plans/:id", s.GetPlan)
	subs.POST("/subscriptions", s.CreateSubscription)
	subs.GET("/subscriptions/:id", s.GetSubscription)
	subs.GET("/subscriptions/user/:user_id", s.ListUserSubscriptions)
	subs.POST("/subscriptions/:id/cancel", s.CancelSubscription)

	gw := protected.Group("/gateway")
	gw.GET("/payment_methods", s.ListGatewayPaymentMethods)
	gw.GET("/payment_method", s.GetGatewayPaymentMethod)
	gw.GET("/installments", s.GetInstallments)
	gw.GET("/identification_types", s.ListIdentificationTypes)
	gw.POST("/token", s.CreateCardToken)
}

func (s *Server) metricsHandler() http.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if s.metrics != nil {
		gatherers = prometheus.Gatherers{s.metrics.Registry, prometheus.DefaultGatherer}
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// Register binds the HTTP listener to the fx lifecycle.
func Register(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
