package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
)

const defaultIdentificationType = "DNI"

type identificationBody struct {
	Type   string `json:"type"`
	Number string `json:"number,omitempty"`
}

type cardholderBody struct {
	Name           string             `json:"name"`
	Identification identificationBody `json:"identification"`
}

type cardTokenBody struct {
	CardNumber      string         `json:"card_number"`
	SecurityCode    string         `json:"security_code,omitempty"`
	ExpirationMonth string         `json:"expiration_month"`
	ExpirationYear  string         `json:"expiration_year"`
	Cardholder      cardholderBody `json:"cardholder"`
}

type savedCardTokenBody struct {
	CustomerID   string `json:"customer_id"`
	CardID       string `json:"card_id"`
	SecurityCode string `json:"security_code,omitempty"`
}

type tokenResponse struct {
	ID flexibleID `json:"id"`
}

// normalizeYear expands two-digit expiration years, "27" becomes "2027".
func normalizeYear(year string) string {
	year = strings.TrimSpace(year)
	if len(year) == 2 {
		return "20" + year
	}
	return year
}

func buildCardTokenBody(req gatewaydomain.CardTokenRequest) cardTokenBody {
	idType := strings.TrimSpace(req.IdentificationType)
	if idType == "" {
		idType = defaultIdentificationType
	}
	return cardTokenBody{
		CardNumber:      strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", ""),
		SecurityCode:    req.SecurityCode,
		ExpirationMonth: strings.TrimSpace(req.ExpirationMonth),
		ExpirationYear:  normalizeYear(req.ExpirationYear),
		Cardholder: cardholderBody{
			Name: req.CardholderName,
			Identification: identificationBody{
				Type:   idType,
				Number: req.IdentificationNumber,
			},
		},
	}
}

func (c *Client) CreateCardToken(ctx context.Context, req gatewaydomain.CardTokenRequest) (string, error) {
	raw, err := c.do(ctx, request{
		op:     "create_card_token",
		method: http.MethodPost,
		path:   "/v1/card_tokens",
		body:   buildCardTokenBody(req),
	})
	if err != nil {
		return "", err
	}
	token, err := decode[tokenResponse]("create_card_token", raw)
	if err != nil {
		return "", err
	}
	return string(token.ID), nil
}

func (c *Client) CreateCardTokenFromSaved(ctx context.Context, customerID, cardID, securityCode string) (string, error) {
	raw, err := c.do(ctx, request{
		op:     "create_saved_card_token",
		method: http.MethodPost,
		path:   "/v1/card_tokens",
		body: savedCardTokenBody{
			CustomerID:   customerID,
			CardID:       cardID,
			SecurityCode: securityCode,
		},
	})
	if err != nil {
		return "", err
	}
	token, err := decode[tokenResponse]("create_saved_card_token", raw)
	if err != nil {
		return "", err
	}
	return string(token.ID), nil
}

// CreatePublicCardToken tokenizes with the public key, as a browser checkout would.
func (c *Client) CreatePublicCardToken(ctx context.Context, req gatewaydomain.CardTokenRequest) (json.RawMessage, error) {
	raw, err := c.do(ctx, request{
		op:     "create_public_card_token",
		method: http.MethodPost,
		path:   "/v1/card_tokens",
		body:   buildCardTokenBody(req),
		auth:   authPublicKey,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
