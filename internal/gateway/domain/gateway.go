package domain

import (
	"context"
	"encoding/json"
)

// Gateway is the remote card-payments provider as seen by the lifecycle services.
// Every method returns *Error on a non-success remote outcome, including transport
// failures and timeouts.
type Gateway interface {
	CreatePayment(ctx context.Context, req ChargeRequest) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)

	GetOrCreateCustomer(ctx context.Context, email string) (string, error)
	SaveCardToCustomer(ctx context.Context, customerID, token string) (string, error)
	GetCustomerEmail(ctx context.Context, customerID string) (string, error)

	CreateCardToken(ctx context.Context, req CardTokenRequest) (string, error)
	CreateCardTokenFromSaved(ctx context.Context, customerID, cardID, securityCode string) (string, error)

	CreatePlan(ctx context.Context, req PlanRequest) (*Plan, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*Subscription, error)
}

// Catalog exposes the public-key endpoints a checkout frontend needs. Responses
// are passed through untouched.
type Catalog interface {
	ListPaymentMethods(ctx context.Context) (json.RawMessage, error)
	PaymentMethodByBIN(ctx context.Context, bin string) (json.RawMessage, error)
	Installments(ctx context.Context, bin string, amount int64, currency string) (json.RawMessage, error)
	IdentificationTypes(ctx context.Context) (json.RawMessage, error)
	CreatePublicCardToken(ctx context.Context, req CardTokenRequest) (json.RawMessage, error)
}

const PayerTypeCustomer = "customer"

type Payer struct {
	Email string
	Type  string
	ID    string
}

// IsCustomer reports whether the payer references a vaulted gateway customer.
func (p Payer) IsCustomer() bool {
	return p.Type == PayerTypeCustomer && p.ID != ""
}

type ChargeRequest struct {
	// Amount is in minor units of Currency.
	Amount            int64
	Currency          string
	Token             string
	Description       string
	ExternalReference string
	Installments      int
	PaymentMethodID   string
	Payer             Payer
	CollectorID       string
	IdempotencyKey    string
}

type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Raw               json.RawMessage
}

type CardTokenRequest struct {
	CardNumber           string
	SecurityCode         string
	ExpirationMonth      string
	ExpirationYear       string
	CardholderName       string
	IdentificationType   string
	IdentificationNumber string
}

// PlanRequest.Amount is in minor units of Currency.
type PlanRequest struct {
	Reason        string
	Amount        int64
	Currency      string
	Frequency     int
	FrequencyType string
}

type Plan struct {
	ID  string
	Raw json.RawMessage
}

type SubscriptionRequest struct {
	PlanID            string
	Reason            string
	PayerEmail        string
	CardTokenID       string
	ExternalReference string
	NotificationURL   string
}

type Subscription struct {
	ID           string
	Status       string
	DateApproved string
	Raw          json.RawMessage
}

// Approved reports whether the gateway already approved the recurring agreement.
func (s Subscription) Approved() bool {
	return s.DateApproved != ""
}
