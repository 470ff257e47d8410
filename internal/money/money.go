// Package money converts between the minor units amounts are stored in and the
// decimal major amounts used by the HTTP API and the gateway.
package money

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotPositive = errors.New("money: amount must be positive")
	ErrPrecision   = errors.New("money: amount has more decimals than the currency allows")
	ErrOutOfRange  = errors.New("money: amount out of range")
)

var currencyExponents = map[string]int32{
	"ARS": 2,
	"BRL": 2,
	"CLP": 0,
	"COP": 2,
	"MXN": 2,
	"PEN": 2,
	"UYU": 2,
	"USD": 2,
}

// Exponent is the number of minor-unit digits for currency. Unknown codes use 2.
func Exponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return exp
	}
	return 2
}

// ToMinor converts a positive major amount, 1000.50 ARS for example, to minor units.
func ToMinor(major decimal.Decimal, currency string) (int64, error) {
	if !major.IsPositive() {
		return 0, ErrNotPositive
	}
	scaled := major.Shift(Exponent(currency))
	if !scaled.IsInteger() {
		return 0, ErrPrecision
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrOutOfRange
	}
	return scaled.IntPart(), nil
}

func ToMajor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}

// Number renders minor units as a JSON number in major units without float rounding.
func Number(minor int64, currency string) json.Number {
	return json.Number(ToMajor(minor, currency).String())
}
