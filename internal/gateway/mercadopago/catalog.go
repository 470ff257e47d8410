package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/railzwaylabs/payments/internal/money"
)

type searchResults struct {
	Results []json.RawMessage `json:"results"`
}

func (c *Client) ListPaymentMethods(ctx context.Context) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{
		op:     "list_payment_methods",
		method: http.MethodGet,
		path:   "/v1/payment_methods",
		auth:   authPublicKey,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// PaymentMethodByBIN returns the first match for the card's leading digits,
// or JSON null when the gateway knows none.
func (c *Client) PaymentMethodByBIN(ctx context.Context, bin string) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{
		op:     "search_payment_method",
		method: http.MethodGet,
		path:   "/v1/payment_methods/search",
		query:  url.Values{"bins": {bin}, "marketplace": {"NONE"}},
		auth:   authPublicKey,
	})
	if err != nil {
		return nil, err
	}

	found, err := decode[searchResults]("search_payment_method", raw)
	if err != nil {
		return nil, err
	}
	if len(found.Results) == 0 {
		return json.RawMessage("null"), nil
	}
	return found.Results[0], nil
}

func (c *Client) Installments(ctx context.Context, bin string, amount int64, currency string) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{
		op:     "installments",
		method: http.MethodGet,
		path:   "/v1/payment_methods/installments",
		query: url.Values{
			"bin":    {bin},
			"amount": {money.ToMajor(amount, currency).String()},
		},
		auth: authPublicKey,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (c *Client) IdentificationTypes(ctx context.Context) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{
		op:     "identification_types",
		method: http.MethodGet,
		path:   "/v1/identification_types",
		auth:   authPublicKey,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
