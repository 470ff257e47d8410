package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")

	// Plan lookups by id are 404s; an unknown plan_id in a create body is a 400.
	errPlanNotFound = errors.New("plan_not_found")
)

// ValidationError is a request problem the caller can fix.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("body", "invalid_request", "invalid request body")
}

var validationErrors = []error{
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidCurrency,
	paymentdomain.ErrInvalidToken,
	paymentdomain.ErrInvalidUser,
	paymentdomain.ErrInvalidPayerEmail,
	paymentdomain.ErrInvalidInstallments,
	paymentdomain.ErrPaymentMethodNotDefault,
	subscriptiondomain.ErrInvalidPlanName,
	subscriptiondomain.ErrInvalidAmount,
	subscriptiondomain.ErrInvalidCurrency,
	subscriptiondomain.ErrInvalidInterval,
	subscriptiondomain.ErrInvalidUser,
	subscriptiondomain.ErrInvalidPayerEmail,
	subscriptiondomain.ErrInvalidCardToken,
	subscriptiondomain.ErrPlanNotFound,
	subscriptiondomain.ErrPlanNotLinked,
}

var notFoundErrors = []error{
	paymentdomain.ErrPaymentNotFound,
	paymentdomain.ErrPaymentMethodNotFound,
	subscriptiondomain.ErrSubscriptionNotFound,
	errPlanNotFound,
}

// AbortWithError writes the error response for err and stops the handler chain.
// Validation problems map to 400, missing resources to 404, and gateway
// failures carry the gateway's own code and message.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": vErr.Code, "message": vErr.Message, "field": vErr.Field})
		return
	}

	if errors.Is(err, ErrUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthorized", "message": "missing or invalid api key"})
		return
	}

	if gwErr, ok := gatewaydomain.AsError(err); ok {
		c.AbortWithStatusJSON(gwErr.HTTPStatus(), gin.H{"code": gwErr.Code, "message": gwErr.Message})
		return
	}

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"code": target.Error(), "message": target.Error()})
			return
		}
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": target.Error(), "message": target.Error()})
			return
		}
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
}
