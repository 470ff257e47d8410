package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// PaymentMethodService manages saved cards. At most one method per user is the default.
type PaymentMethodService interface {
	Create(ctx context.Context, userID string, input CreatePaymentMethodInput) (*PaymentMethod, error)
	List(ctx context.Context, userID string) ([]PaymentMethod, error)
	GetDefault(ctx context.Context, userID string) (*PaymentMethod, error)
	Get(ctx context.Context, id snowflake.ID, userID string) (*PaymentMethod, error)
	Update(ctx context.Context, id snowflake.ID, userID string, input UpdatePaymentMethodInput) (*PaymentMethod, error)
	Delete(ctx context.Context, id snowflake.ID, userID string) (bool, error)
}

type CreatePaymentMethodInput struct {
	CardTokenID     string
	LastFourDigits  string
	PaymentMethodID string
	CardholderName  string
	ExpirationMonth string
	ExpirationYear  string
	IsDefault       bool

	// Vaulting inputs. Vaulting is attempted only when PayerEmail is set.
	PayerEmail           string
	CardNumber           string
	SecurityCode         string
	IdentificationType   string
	IdentificationNumber string
}

type UpdatePaymentMethodInput struct {
	IsDefault *bool
}
