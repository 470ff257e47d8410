package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnavailable = "gateway_unavailable"
	CodeTimeout     = "gateway_timeout"
	CodeTransport   = "gateway_transport_error"
)

// Error is the single error type surfaced by gateway calls.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Body       json.RawMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus is the status the error should surface with at the API boundary.
// Remote server errors and transport failures become 502 Bad Gateway.
func (e *Error) HTTPStatus() int {
	switch {
	case e.StatusCode == http.StatusServiceUnavailable && e.Code == CodeUnavailable:
		return http.StatusServiceUnavailable
	case e.StatusCode == http.StatusGatewayTimeout:
		return http.StatusGatewayTimeout
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return e.StatusCode
	default:
		return http.StatusBadGateway
	}
}

func AsError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
