package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/money"
)

const subscriptionStatusAuthorized = "authorized"

type autoRecurringBody struct {
	Frequency         int         `json:"frequency"`
	FrequencyType     string      `json:"frequency_type"`
	TransactionAmount json.Number `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
}

type planBody struct {
	Reason                string            `json:"reason"`
	AutoRecurring         autoRecurringBody `json:"auto_recurring"`
	PaymentMethodsAllowed []string          `json:"payment_methods_allowed"`
}

type preapprovalBody struct {
	PreapprovalPlanID string `json:"preapproval_plan_id"`
	Reason            string `json:"reason"`
	PayerEmail        string `json:"payer_email"`
	CardTokenID       string `json:"card_token_id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference,omitempty"`
	NotificationURL   string `json:"notification_url,omitempty"`
}

type preapprovalResponse struct {
	ID           flexibleID `json:"id"`
	Status       string     `json:"status"`
	DateApproved string     `json:"date_approved"`
}

func (c *Client) CreatePlan(ctx context.Context, req gatewaydomain.PlanRequest) (*gatewaydomain.Plan, error) {
	raw, err := c.do(ctx, request{
		op:     "create_plan",
		method: http.MethodPost,
		path:   "/preapproval_plan",
		body: planBody{
			Reason: req.Reason,
			AutoRecurring: autoRecurringBody{
				Frequency:         req.Frequency,
				FrequencyType:     req.FrequencyType,
				TransactionAmount: money.Number(req.Amount, req.Currency),
				CurrencyID:        req.Currency,
			},
			PaymentMethodsAllowed: []string{"credit_card", "debit_card"},
		},
	})
	if err != nil {
		return nil, err
	}
	resp, err := decode[preapprovalResponse]("create_plan", raw)
	if err != nil {
		return nil, err
	}
	return &gatewaydomain.Plan{ID: string(resp.ID), Raw: raw}, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req gatewaydomain.SubscriptionRequest) (*gatewaydomain.Subscription, error) {
	raw, err := c.do(ctx, request{
		op:     "create_subscription",
		method: http.MethodPost,
		path:   "/preapproval",
		body: preapprovalBody{
			PreapprovalPlanID: req.PlanID,
			Reason:            req.Reason,
			PayerEmail:        req.PayerEmail,
			CardTokenID:       req.CardTokenID,
			Status:            subscriptionStatusAuthorized,
			ExternalReference: req.ExternalReference,
			NotificationURL:   req.NotificationURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return toSubscription("create_subscription", raw)
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*gatewaydomain.Subscription, error) {
	raw, err := c.do(ctx, request{
		op:     "get_subscription",
		method: http.MethodGet,
		path:   "/preapproval/" + url.PathEscape(id),
	})
	if err != nil {
		return nil, err
	}
	return toSubscription("get_subscription", raw)
}

func (c *Client) CancelSubscription(ctx context.Context, id string) (*gatewaydomain.Subscription, error) {
	raw, err := c.do(ctx, request{
		op:     "cancel_subscription",
		method: http.MethodPut,
		path:   "/preapproval/" + url.PathEscape(id),
		body:   map[string]string{"status": "cancelled"},
	})
	if err != nil {
		return nil, err
	}
	return toSubscription("cancel_subscription", raw)
}

func toSubscription(op string, raw []byte) (*gatewaydomain.Subscription, error) {
	resp, err := decode[preapprovalResponse](op, raw)
	if err != nil {
		return nil, err
	}
	return &gatewaydomain.Subscription{
		ID:           string(resp.ID),
		Status:       resp.Status,
		DateApproved: resp.DateApproved,
		Raw:          raw,
	}, nil
}
