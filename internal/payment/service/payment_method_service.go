package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/clock"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentMethodParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.PaymentMethodRepository
	Gateway gatewaydomain.Gateway `optional:"true"`
}

type PaymentMethodServiceImpl struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.PaymentMethodRepository
	gateway gatewaydomain.Gateway
}

func NewPaymentMethodService(p PaymentMethodParams) domain.PaymentMethodService {
	return &PaymentMethodServiceImpl{
		db:      p.DB,
		log:     p.Log.Named("payment.method"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		gateway: p.Gateway,
	}
}

func (s *PaymentMethodServiceImpl) Create(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUser
	}
	if strings.TrimSpace(input.CardTokenID) == "" {
		return nil, domain.ErrInvalidToken
	}

	customerID, cardID, vaultFailed := s.vault(ctx, userID, input)

	now := s.clock.Now(ctx)
	method := &domain.PaymentMethod{
		ID:                s.genID.Generate(),
		UserID:            userID,
		Gateway:           domain.GatewayMercadoPago,
		CardTokenID:       input.CardTokenID,
		GatewayCustomerID: customerID,
		GatewayCardID:     cardID,
		LastFourDigits:    input.LastFourDigits,
		PaymentMethodID:   input.PaymentMethodID,
		CardholderName:    input.CardholderName,
		ExpirationMonth:   input.ExpirationMonth,
		ExpirationYear:    input.ExpirationYear,
		IsDefault:         input.IsDefault,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := s.repo.ClearDefault(ctx, tx, userID); err != nil {
				return err
			}
		}
		return s.repo.Insert(ctx, tx, method)
	})
	if err != nil {
		return nil, err
	}

	if vaultFailed {
		method.Warnings = []string{domain.WarningVaultingFailed}
	}
	return method, nil
}

// vault attaches the card to a gateway customer. Failures are logged and reported
// through the returned flag, never as an error.
func (s *PaymentMethodServiceImpl) vault(ctx context.Context, userID string, input domain.CreatePaymentMethodInput) (*string, *string, bool) {
	email := strings.TrimSpace(input.PayerEmail)
	if s.gateway == nil || email == "" {
		return nil, nil, false
	}

	token := input.CardTokenID
	if strings.TrimSpace(input.CardNumber) != "" {
		serverToken, err := s.gateway.CreateCardToken(ctx, gatewaydomain.CardTokenRequest{
			CardNumber:           input.CardNumber,
			SecurityCode:         input.SecurityCode,
			ExpirationMonth:      input.ExpirationMonth,
			ExpirationYear:       input.ExpirationYear,
			CardholderName:       input.CardholderName,
			IdentificationType:   input.IdentificationType,
			IdentificationNumber: input.IdentificationNumber,
		})
		if err != nil {
			s.log.Warn("card vaulting failed: tokenization", zap.String("user_id", userID), zap.Error(err))
			return nil, nil, true
		}
		token = serverToken
	}

	customerID, err := s.gateway.GetOrCreateCustomer(ctx, email)
	if err != nil {
		s.log.Warn("card vaulting failed: customer lookup", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, true
	}

	cardID, err := s.gateway.SaveCardToCustomer(ctx, customerID, token)
	if err != nil {
		s.log.Warn("card vaulting failed: save card",
			zap.String("user_id", userID),
			zap.String("gateway_customer_id", customerID),
			zap.Error(err),
		)
		return nil, nil, true
	}

	s.log.Info("card vaulted",
		zap.String("user_id", userID),
		zap.String("gateway_customer_id", customerID),
		zap.String("gateway_card_id", cardID),
	)
	return &customerID, &cardID, false
}

func (s *PaymentMethodServiceImpl) List(ctx context.Context, userID string) ([]domain.PaymentMethod, error) {
	return s.repo.ListByUser(ctx, nil, userID)
}

func (s *PaymentMethodServiceImpl) GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	return s.repo.FindDefault(ctx, nil, userID)
}

func (s *PaymentMethodServiceImpl) Get(ctx context.Context, id snowflake.ID, userID string) (*domain.PaymentMethod, error) {
	return s.repo.FindByID(ctx, nil, id, userID)
}

func (s *PaymentMethodServiceImpl) Update(ctx context.Context, id snowflake.ID, userID string, input domain.UpdatePaymentMethodInput) (*domain.PaymentMethod, error) {
	var method *domain.PaymentMethod
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, id, userID)
		if err != nil || found == nil {
			return err
		}

		if input.IsDefault != nil {
			if *input.IsDefault {
				if err := s.repo.ClearDefault(ctx, tx, userID); err != nil {
					return err
				}
			}
			if err := s.repo.SetDefault(ctx, tx, id, *input.IsDefault); err != nil {
				return err
			}
		}

		method, err = s.repo.FindByID(ctx, tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return method, nil
}

func (s *PaymentMethodServiceImpl) Delete(ctx context.Context, id snowflake.ID, userID string) (bool, error) {
	rows, err := s.repo.Delete(ctx, nil, id, userID)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
