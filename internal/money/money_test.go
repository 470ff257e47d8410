package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	tests := []struct {
		name     string
		major    string
		currency string
		want     int64
		err      error
	}{
		{name: "whole pesos", major: "1000", currency: "ARS", want: 100000},
		{name: "cents", major: "10.5", currency: "ars", want: 1050},
		{name: "zero decimal currency", major: "1050", currency: "CLP", want: 1050},
		{name: "unknown currency uses two digits", major: "0.99", currency: "XYZ", want: 99},
		{name: "too many decimals", major: "10.005", currency: "ARS", err: ErrPrecision},
		{name: "fraction of a peso in CLP", major: "10.5", currency: "CLP", err: ErrPrecision},
		{name: "zero", major: "0", currency: "ARS", err: ErrNotPositive},
		{name: "negative", major: "-5", currency: "ARS", err: ErrNotPositive},
		{name: "overflow", major: "100000000000000000000", currency: "ARS", err: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinor(decimal.RequireFromString(tt.major), tt.currency)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumber(t *testing.T) {
	out, err := json.Marshal(map[string]any{
		"ars": Number(100000, "ARS"),
		"odd": Number(1050, "ARS"),
		"clp": Number(1050, "CLP"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ars":1000,"odd":10.5,"clp":1050}`, string(out))
}
