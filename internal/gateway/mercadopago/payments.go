package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/money"
)

type payerBody struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"type,omitempty"`
	ID    string `json:"id,omitempty"`
}

type paymentBody struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Token             string      `json:"token"`
	Installments      int         `json:"installments"`
	Payer             payerBody   `json:"payer"`
	PaymentMethodID   string      `json:"payment_method_id,omitempty"`
	Description       string      `json:"description,omitempty"`
	ExternalReference string      `json:"external_reference,omitempty"`
	CollectorID       string      `json:"collector_id,omitempty"`
}

type paymentResponse struct {
	ID                flexibleID `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	ExternalReference string     `json:"external_reference"`
}

func buildPaymentBody(req gatewaydomain.ChargeRequest) paymentBody {
	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}

	body := paymentBody{
		TransactionAmount: money.Number(req.Amount, req.Currency),
		Token:             req.Token,
		Installments:      installments,
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
		CollectorID:       req.CollectorID,
	}

	// A vaulted customer is identified by id only. Customer payers never send a
	// brand; the gateway takes it from the token.
	if req.Payer.IsCustomer() {
		body.Payer = payerBody{Type: req.Payer.Type, ID: req.Payer.ID}
		return body
	}
	body.Payer = payerBody{Email: req.Payer.Email, Type: req.Payer.Type}
	if req.Payer.Type != gatewaydomain.PayerTypeCustomer {
		body.PaymentMethodID = req.PaymentMethodID
	}
	return body
}

func (c *Client) CreatePayment(ctx context.Context, req gatewaydomain.ChargeRequest) (*gatewaydomain.Payment, error) {
	raw, err := c.do(ctx, request{
		op:             "create_payment",
		method:         http.MethodPost,
		path:           "/v1/payments",
		body:           buildPaymentBody(req),
		idempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return toPayment("create_payment", raw)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*gatewaydomain.Payment, error) {
	raw, err := c.do(ctx, request{
		op:     "get_payment",
		method: http.MethodGet,
		path:   "/v1/payments/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	return toPayment("get_payment", raw)
}

func toPayment(op string, raw []byte) (*gatewaydomain.Payment, error) {
	resp, err := decode[paymentResponse](op, raw)
	if err != nil {
		return nil, err
	}
	return &gatewaydomain.Payment{
		ID:                string(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Raw:               raw,
	}, nil
}
