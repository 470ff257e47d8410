package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/clock"
	"github.com/railzwaylabs/payments/internal/config"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Gateway gatewaydomain.Gateway
	Repo    domain.PaymentRepository
	Methods domain.PaymentMethodRepository
}

// Service runs one charge attempt per call. The local row is written first and
// the whole transaction rolls back when the gateway refuses the charge.
type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	gateway         gatewaydomain.Gateway
	repo            domain.PaymentRepository
	methods         domain.PaymentMethodRepository
	defaultCurrency string
}

func NewService(p Params) domain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.DefaultCurrency))
	if currency == "" {
		currency = "ARS"
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		gateway:         p.Gateway,
		repo:            p.Repo,
		methods:         p.Methods,
		defaultCurrency: currency,
	}
}

func (s *Service) CreatePayment(ctx context.Context, input domain.CreatePaymentInput) (*domain.Payment, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(input.Token) == "" {
		return nil, domain.ErrInvalidToken
	}
	if strings.TrimSpace(input.PayerEmail) == "" {
		return nil, domain.ErrInvalidPayerEmail
	}
	if input.Installments < 0 {
		return nil, domain.ErrInvalidInstallments
	}
	currency, err := s.currency(input.Currency)
	if err != nil {
		return nil, err
	}

	payment := s.newPayment(ctx, input.UserID, input.Amount, currency, input.Description, input.ExternalReference, input.Installments)
	req := gatewaydomain.ChargeRequest{
		Amount:          input.Amount,
		Currency:        currency,
		Token:           input.Token,
		Installments:    payment.Installments,
		PaymentMethodID: input.PaymentMethodID,
		Payer:           gatewaydomain.Payer{Email: input.PayerEmail},
		IdempotencyKey:  input.IdempotencyKey,
	}
	return s.charge(ctx, payment, req)
}

func (s *Service) CreatePaymentWithSavedMethod(ctx context.Context, input domain.CreateSavedMethodPaymentInput) (*domain.Payment, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, domain.ErrInvalidUser
	}
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.Installments < 0 {
		return nil, domain.ErrInvalidInstallments
	}
	currency, err := s.currency(input.Currency)
	if err != nil {
		return nil, err
	}

	method, err := s.methods.FindDefaultByID(ctx, nil, input.PaymentMethodID, input.UserID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, domain.ErrPaymentMethodNotDefault
	}

	// The gateway customer record is authoritative for the payer email.
	email := input.PayerEmail
	var customerID string
	if method.GatewayCustomerID != nil {
		customerID = *method.GatewayCustomerID
		customerEmail, err := s.gateway.GetCustomerEmail(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if customerEmail != "" {
			email = customerEmail
		}
	}

	token := method.CardTokenID
	if method.Vaulted() {
		token, err = s.gateway.CreateCardTokenFromSaved(ctx, customerID, *method.GatewayCardID, input.SecurityCode)
		if err != nil {
			return nil, err
		}
	}

	userID := input.UserID
	payment := s.newPayment(ctx, &userID, input.Amount, currency, input.Description, input.ExternalReference, input.Installments)
	req := gatewaydomain.ChargeRequest{
		Amount:          input.Amount,
		Currency:        currency,
		Token:           token,
		Installments:    payment.Installments,
		PaymentMethodID: method.PaymentMethodID,
		Payer: gatewaydomain.Payer{
			Email: email,
			Type:  gatewaydomain.PayerTypeCustomer,
			ID:    customerID,
		},
		CollectorID:    input.CollectorID,
		IdempotencyKey: input.IdempotencyKey,
	}
	return s.charge(ctx, payment, req)
}

func (s *Service) newPayment(ctx context.Context, userID *string, amount int64, currency string, description, externalRef *string, installments int) *domain.Payment {
	if installments == 0 {
		installments = 1
	}
	now := s.clock.Now(ctx)
	return &domain.Payment{
		ID:                s.genID.Generate(),
		UserID:            userID,
		Amount:            amount,
		Currency:          currency,
		Status:            domain.PaymentStatusPending,
		ExternalReference: nonEmpty(externalRef),
		Description:       nonEmpty(description),
		Installments:      installments,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *Service) charge(ctx context.Context, payment *domain.Payment, req gatewaydomain.ChargeRequest) (*domain.Payment, error) {
	if payment.ExternalReference == nil {
		ref := payment.ID.String()
		payment.ExternalReference = &ref
	}
	req.ExternalReference = *payment.ExternalReference
	if payment.Description != nil {
		req.Description = *payment.Description
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}

		result, err := s.gateway.CreatePayment(ctx, req)
		if err != nil {
			s.log.Error("gateway charge failed",
				zap.String("payment_id", payment.ID.String()),
				zap.String("external_reference", req.ExternalReference),
				zap.Error(err),
			)
			return err
		}

		gatewayID := result.ID
		payment.GatewayPaymentID = &gatewayID
		payment.Status = domain.PaymentStatus(result.Status)
		if payment.Status == "" {
			payment.Status = domain.PaymentStatusPending
		}
		payment.StatusDetail = result.StatusDetail
		if len(result.Raw) > 0 {
			payment.GatewayResponse = datatypes.JSON(result.Raw)
		}
		payment.UpdatedAt = s.clock.Now(ctx)
		return s.repo.Update(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	if !payment.Status.Known() {
		s.log.Warn("unknown payment status from gateway",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
	}
	s.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway_payment_id", *payment.GatewayPaymentID),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	return s.repo.FindByID(ctx, nil, id)
}

func (s *Service) GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	return s.repo.FindByGatewayID(ctx, nil, gatewayPaymentID)
}

// UpdateStatus overwrites the status of the payment the gateway knows as
// gatewayPaymentID. It returns nil, nil when no such payment exists.
func (s *Service) UpdateStatus(ctx context.Context, gatewayPaymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	var payment *domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateStatusByGatewayID(ctx, tx, gatewayPaymentID, status)
		if err != nil || rows == 0 {
			return err
		}
		payment, err = s.repo.FindByGatewayID(ctx, tx, gatewayPaymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if payment != nil {
		s.log.Info("payment status updated",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.String("status", string(status)),
		)
	}
	return payment, nil
}

func (s *Service) currency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return s.defaultCurrency, nil
	}
	if len(currency) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	return currency, nil
}

func nonEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
