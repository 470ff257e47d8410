package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*Payment, error)
	CreatePaymentWithSavedMethod(ctx context.Context, input CreateSavedMethodPaymentInput) (*Payment, error)
	Get(ctx context.Context, id snowflake.ID) (*Payment, error)
	GetByGatewayID(ctx context.Context, gatewayPaymentID string) (*Payment, error)
	UpdateStatus(ctx context.Context, gatewayPaymentID string, status PaymentStatus) (*Payment, error)
}

type CreatePaymentInput struct {
	UserID            *string
	Amount            int64
	Currency          string
	Token             string
	Description       *string
	ExternalReference *string
	Installments      int
	PaymentMethodID   string
	PayerEmail        string
	IdempotencyKey    string
}

type CreateSavedMethodPaymentInput struct {
	UserID            string
	PaymentMethodID   snowflake.ID
	Amount            int64
	Currency          string
	Description       *string
	ExternalReference *string
	Installments      int
	PayerEmail        string
	SecurityCode      string
	CollectorID       string
	IdempotencyKey    string
}

var (
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidCurrency         = errors.New("invalid_currency")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrInvalidUser             = errors.New("invalid_user")
	ErrInvalidPayerEmail       = errors.New("invalid_payer_email")
	ErrInvalidInstallments     = errors.New("invalid_installments")
	ErrPaymentNotFound         = errors.New("payment_not_found")
	ErrPaymentMethodNotFound   = errors.New("payment_method_not_found")
	ErrPaymentMethodNotDefault = errors.New("payment_method_not_found_or_not_default")
)
