package mercadopago

import (
	"context"
	"net/http"
	"net/url"
)

type customerResponse struct {
	ID    flexibleID `json:"id"`
	Email string     `json:"email"`
}

type customerSearchResponse struct {
	Results []customerResponse `json:"results"`
}

type cardResponse struct {
	ID flexibleID `json:"id"`
}

// GetOrCreateCustomer returns the first customer registered under email,
// creating one when the search comes back empty.
func (c *Client) GetOrCreateCustomer(ctx context.Context, email string) (string, error) {
	raw, err := c.do(ctx, request{
		op:     "search_customer",
		method: http.MethodGet,
		path:   "/v1/customers/search",
		query:  url.Values{"email": {email}},
	})
	if err != nil {
		return "", err
	}
	found, err := decode[customerSearchResponse]("search_customer", raw)
	if err != nil {
		return "", err
	}
	if len(found.Results) > 0 && found.Results[0].ID != "" {
		return string(found.Results[0].ID), nil
	}

	raw, err = c.do(ctx, request{
		op:     "create_customer",
		method: http.MethodPost,
		path:   "/v1/customers",
		body:   map[string]string{"email": email},
	})
	if err != nil {
		return "", err
	}
	created, err := decode[customerResponse]("create_customer", raw)
	if err != nil {
		return "", err
	}
	return string(created.ID), nil
}

func (c *Client) SaveCardToCustomer(ctx context.Context, customerID, token string) (string, error) {
	raw, err := c.do(ctx, request{
		op:     "save_card",
		method: http.MethodPost,
		path:   "/v1/customers/" + url.PathEscape(customerID) + "/cards",
		body:   map[string]string{"token": token},
	})
	if err != nil {
		return "", err
	}
	card, err := decode[cardResponse]("save_card", raw)
	if err != nil {
		return "", err
	}
	return string(card.ID), nil
}

func (c *Client) GetCustomerEmail(ctx context.Context, customerID string) (string, error) {
	raw, err := c.do(ctx, request{
		op:     "get_customer",
		method: http.MethodGet,
		path:   "/v1/customers/" + url.PathEscape(customerID),
	})
	if err != nil {
		return "", err
	}
	customer, err := decode[customerResponse]("get_customer", raw)
	if err != nil {
		return "", err
	}
	return customer.Email, nil
}
