package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/payments/internal/money"
	"gorm.io/datatypes"
)

const GatewayMercadoPago = "mercadopago"

// PaymentStatus mirrors the gateway's open-ended status vocabulary. Values outside
// the known set are stored verbatim.
type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

var knownPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:     {},
	PaymentStatusApproved:    {},
	PaymentStatusAuthorized:  {},
	PaymentStatusInProcess:   {},
	PaymentStatusInMediation: {},
	PaymentStatusRejected:    {},
	PaymentStatusCancelled:   {},
	PaymentStatusRefunded:    {},
	PaymentStatusChargedBack: {},
}

func (s PaymentStatus) Known() bool {
	_, ok := knownPaymentStatuses[s]
	return ok
}

// Payment is one charge attempt. The row exists before the gateway is called.
// Amount is stored in minor units of Currency.
type Payment struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID            *string        `json:"user_id,omitempty" gorm:"type:varchar(255);index"`
	Amount            int64          `json:"amount" gorm:"not null"`
	Currency          string         `json:"currency" gorm:"type:varchar(3);not null"`
	Status            PaymentStatus  `json:"status" gorm:"type:varchar(50);not null;index"`
	StatusDetail      string         `json:"status_detail,omitempty" gorm:"type:varchar(100)"`
	GatewayPaymentID  *string        `json:"gateway_payment_id,omitempty" gorm:"type:varchar(255);index"`
	ExternalReference *string        `json:"external_reference,omitempty" gorm:"type:varchar(255)"`
	Description       *string        `json:"description,omitempty" gorm:"type:text"`
	Installments      int            `json:"installments" gorm:"not null;default:1"`
	GatewayResponse   datatypes.JSON `json:"-"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// MarshalJSON renders Amount in major units of Currency.
func (p Payment) MarshalJSON() ([]byte, error) {
	type payment Payment
	return json.Marshal(struct {
		payment
		Amount json.Number `json:"amount"`
	}{payment(p), money.Number(p.Amount, p.Currency)})
}

// PaymentMethod is a saved card reference. Raw card data is never stored, only
// gateway-issued tokens and ids.
type PaymentMethod struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID            string       `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Gateway           string       `json:"gateway" gorm:"type:varchar(50);not null"`
	CardTokenID       string       `json:"-" gorm:"type:varchar(255);not null"`
	GatewayCustomerID *string      `json:"gateway_customer_id,omitempty" gorm:"type:varchar(255)"`
	GatewayCardID     *string      `json:"gateway_card_id,omitempty" gorm:"type:varchar(255)"`
	LastFourDigits    string       `json:"last_four_digits" gorm:"type:varchar(4)"`
	PaymentMethodID   string       `json:"payment_method_id" gorm:"type:varchar(50)"`
	CardholderName    string       `json:"cardholder_name" gorm:"type:varchar(255)"`
	ExpirationMonth   string       `json:"expiration_month" gorm:"type:varchar(2)"`
	ExpirationYear    string       `json:"expiration_year" gorm:"type:varchar(4)"`
	IsDefault         bool         `json:"is_default" gorm:"not null;default:false"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`

	// Warnings carries non-fatal problems from the request that produced this value.
	Warnings []string `json:"warnings,omitempty" gorm:"-"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// Vaulted reports whether the card is attached to a gateway customer.
func (m PaymentMethod) Vaulted() bool {
	return m.GatewayCustomerID != nil && m.GatewayCardID != nil
}

const WarningVaultingFailed = "vaulting_failed"
