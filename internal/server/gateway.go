package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/shopspring/decimal"
)

const minBINLength = 6

type cardTokenRequest struct {
	CardNumber      string `json:"card_number"`
	SecurityCode    string `json:"security_code"`
	ExpirationMonth string `json:"card_expiration_month"`
	ExpirationYear  string `json:"card_expiration_year"`
	CardholderName  string `json:"cardholder_name"`
	DocType         string `json:"doc_type,omitempty"`
	DocNumber       string `json:"doc_number,omitempty"`
}

// Catalog responses are passed through from the gateway unchanged.
func respondRaw(c *gin.Context, raw json.RawMessage) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func binFromQuery(c *gin.Context) (string, bool) {
	bin := strings.TrimSpace(c.Query("bin"))
	if len(bin) < minBINLength {
		AbortWithError(c, newValidationError("bin", "invalid_bin", "bin must have at least 6 digits"))
		return "", false
	}
	return bin, true
}

// GET /api/v1/gateway/payment_methods
func (s *Server) ListGatewayPaymentMethods(c *gin.Context) {
	raw, err := s.catalog.ListPaymentMethods(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondRaw(c, raw)
}

// GET /api/v1/gateway/payment_method?bin=
func (s *Server) GetGatewayPaymentMethod(c *gin.Context) {
	bin, ok := binFromQuery(c)
	if !ok {
		return
	}
	raw, err := s.catalog.PaymentMethodByBIN(c.Request.Context(), bin)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondRaw(c, raw)
}

// GetInstallments takes amount in major units of currency (default currency
// when omitted).
// GET /api/v1/gateway/installments?bin=&amount=&currency=
func (s *Server) GetInstallments(c *gin.Context) {
	bin, ok := binFromQuery(c)
	if !ok {
		return
	}
	major, err := decimal.NewFromString(strings.TrimSpace(c.Query("amount")))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a decimal number"))
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	amount, err := s.minorAmount(major, currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	raw, err := s.catalog.Installments(c.Request.Context(), bin, amount, currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondRaw(c, raw)
}

// GET /api/v1/gateway/identification_types
func (s *Server) ListIdentificationTypes(c *gin.Context) {
	raw, err := s.catalog.IdentificationTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondRaw(c, raw)
}

// POST /api/v1/gateway/token
func (s *Server) CreateCardToken(c *gin.Context) {
	var req cardTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CardNumber) == "" || strings.TrimSpace(req.SecurityCode) == "" {
		AbortWithError(c, newValidationError("card_number", "missing_params", "card_number and security_code are required"))
		return
	}

	raw, err := s.catalog.CreatePublicCardToken(c.Request.Context(), gatewaydomain.CardTokenRequest{
		CardNumber:           req.CardNumber,
		SecurityCode:         req.SecurityCode,
		ExpirationMonth:      strings.TrimSpace(req.ExpirationMonth),
		ExpirationYear:       strings.TrimSpace(req.ExpirationYear),
		CardholderName:       strings.TrimSpace(req.CardholderName),
		IdentificationType:   strings.TrimSpace(req.DocType),
		IdentificationNumber: strings.TrimSpace(req.DocNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondRaw(c, raw)
}
