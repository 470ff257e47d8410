package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
)

type createPaymentMethodRequest struct {
	CardTokenID     string `json:"card_token_id"`
	LastFourDigits  string `json:"last_four_digits"`
	PaymentMethodID string `json:"payment_method_id"`
	CardholderName  string `json:"cardholder_name"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
	IsDefault       bool   `json:"is_default"`
	PayerEmail      string `json:"payer_email,omitempty"`

	// Used only for server-side tokenization, never stored.
	CardNumber   string `json:"card_number,omitempty"`
	SecurityCode string `json:"security_code,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
	DocNumber    string `json:"doc_number,omitempty"`
}

type updatePaymentMethodRequest struct {
	IsDefault *bool `json:"is_default"`
}

func userIDFromQuery(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		AbortWithError(c, newValidationError("user_id", "missing_params", "user_id is required"))
		return "", false
	}
	return userID, true
}

// CreatePaymentMethod saves a card for a user and tries to vault it at the gateway.
// POST /api/v1/payment-methods?user_id=
func (s *Server) CreatePaymentMethod(c *gin.Context) {
	userID, ok := userIDFromQuery(c)
	if !ok {
		return
	}

	var req createPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	method, err := s.paymentMethodSvc.Create(c.Request.Context(), userID, paymentdomain.CreatePaymentMethodInput{
		CardTokenID:          strings.TrimSpace(req.CardTokenID),
		LastFourDigits:       strings.TrimSpace(req.LastFourDigits),
		PaymentMethodID:      strings.TrimSpace(req.PaymentMethodID),
		CardholderName:       strings.TrimSpace(req.CardholderName),
		ExpirationMonth:      strings.TrimSpace(req.ExpirationMonth),
		ExpirationYear:       strings.TrimSpace(req.ExpirationYear),
		IsDefault:            req.IsDefault,
		PayerEmail:           strings.TrimSpace(req.PayerEmail),
		CardNumber:           req.CardNumber,
		SecurityCode:         req.SecurityCode,
		IdentificationType:   strings.TrimSpace(req.DocType),
		IdentificationNumber: strings.TrimSpace(req.DocNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, method)
}

// GET /api/v1/payment-methods/user/:user_id
func (s *Server) ListPaymentMethods(c *gin.Context) {
	methods, err := s.paymentMethodSvc.List(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondList(c, methods)
}

// GetDefaultPaymentMethod answers {"data": null} when the user has no default.
// GET /api/v1/payment-methods/user/:user_id/default
func (s *Server) GetDefaultPaymentMethod(c *gin.Context) {
	method, err := s.paymentMethodSvc.GetDefault(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, method)
}

// GET /api/v1/payment-methods/:id?user_id=
func (s *Server) GetPaymentMethod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := userIDFromQuery(c)
	if !ok {
		return
	}

	method, err := s.paymentMethodSvc.Get(c.Request.Context(), id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if method == nil {
		AbortWithError(c, paymentdomain.ErrPaymentMethodNotFound)
		return
	}
	respondData(c, method)
}

// PUT /api/v1/payment-methods/:id?user_id=
func (s *Server) UpdatePaymentMethod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := userIDFromQuery(c)
	if !ok {
		return
	}

	var req updatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	method, err := s.paymentMethodSvc.Update(c.Request.Context(), id, userID, paymentdomain.UpdatePaymentMethodInput{
		IsDefault: req.IsDefault,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if method == nil {
		AbortWithError(c, paymentdomain.ErrPaymentMethodNotFound)
		return
	}
	respondData(c, method)
}

// DELETE /api/v1/payment-methods/:id?user_id=
func (s *Server) DeletePaymentMethod(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, ok := userIDFromQuery(c)
	if !ok {
		return
	}

	deleted, err := s.paymentMethodSvc.Delete(c.Request.Context(), id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !deleted {
		AbortWithError(c, paymentdomain.ErrPaymentMethodNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment_method_deleted"})
}
