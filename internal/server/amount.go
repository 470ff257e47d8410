package server

import (
	"fmt"
	"strings"

	"github.com/railzwaylabs/payments/internal/money"
	"github.com/shopspring/decimal"
)

// minorAmount converts an amount given in major units of currency to the minor
// units services store. A blank currency resolves to the configured default.
func (s *Server) minorAmount(amount decimal.Decimal, currency string) (int64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	minor, err := money.ToMinor(amount, currency)
	if err != nil {
		return 0, newValidationError("amount", "invalid_amount",
			fmt.Sprintf("amount must be positive with at most %d decimals for %s", money.Exponent(currency), currency))
	}
	return minor, nil
}
