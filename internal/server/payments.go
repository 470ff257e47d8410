package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	"github.com/shopspring/decimal"
)

type payerRequest struct {
	Email string `json:"email"`
}

// Amounts are decimal major units of currency, 1000.50 ARS for example.
type createPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Token             string          `json:"token"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Payer             payerRequest    `json:"payer"`
	Installments      int             `json:"installments"`
	Description       *string         `json:"description,omitempty"`
	ExternalReference *string         `json:"external_reference,omitempty"`
	UserID            *string         `json:"user_id,omitempty"`
}

type createSavedMethodPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaymentMethodID   string          `json:"payment_method_id"`
	Payer             payerRequest    `json:"payer"`
	Installments      int             `json:"installments"`
	Description       *string         `json:"description,omitempty"`
	ExternalReference *string         `json:"external_reference,omitempty"`
	UserID            string          `json:"user_id"`
	CollectorID       string          `json:"collector_id,omitempty"`
	SecurityCode      string          `json:"security_code,omitempty"`
}

// CreatePayment charges a one-time card token.
// POST /api/v1/payments
func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := s.minorAmount(req.Amount, req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.paymentSvc.CreatePayment(c.Request.Context(), paymentdomain.CreatePaymentInput{
		UserID:            trimmedPtr(req.UserID),
		Amount:            amount,
		Currency:          req.Currency,
		Token:             strings.TrimSpace(req.Token),
		Description:       req.Description,
		ExternalReference: trimmedPtr(req.ExternalReference),
		Installments:      req.Installments,
		PaymentMethodID:   strings.TrimSpace(req.PaymentMethodID),
		PayerEmail:        strings.TrimSpace(req.Payer.Email),
		IdempotencyKey:    idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payment)
}

// CreatePaymentWithSavedMethod charges the user's default saved card.
// POST /api/v1/payments/with-saved-method
func (s *Server) CreatePaymentWithSavedMethod(c *gin.Context) {
	var req createSavedMethodPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	methodID, err := snowflake.ParseString(strings.TrimSpace(req.PaymentMethodID))
	if err != nil {
		AbortWithError(c, newValidationError("payment_method_id", "invalid_id", "invalid payment_method_id"))
		return
	}
	amount, err := s.minorAmount(req.Amount, req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.paymentSvc.CreatePaymentWithSavedMethod(c.Request.Context(), paymentdomain.CreateSavedMethodPaymentInput{
		UserID:            strings.TrimSpace(req.UserID),
		PaymentMethodID:   methodID,
		Amount:            amount,
		Currency:          req.Currency,
		Description:       req.Description,
		ExternalReference: trimmedPtr(req.ExternalReference),
		Installments:      req.Installments,
		PayerEmail:        strings.TrimSpace(req.Payer.Email),
		SecurityCode:      strings.TrimSpace(req.SecurityCode),
		CollectorID:       strings.TrimSpace(req.CollectorID),
		IdempotencyKey:    idempotencyKeyFromHeader(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, payment)
}

// GetPayment returns a local payment by id.
// GET /api/v1/payments/:id
func (s *Server) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := s.paymentSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment == nil {
		AbortWithError(c, paymentdomain.ErrPaymentNotFound)
		return
	}

	respondData(c, payment)
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
