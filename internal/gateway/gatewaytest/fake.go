// Package gatewaytest provides an in-memory gateway for service and handler tests.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
)

// Fake records every call and returns canned results. Set an entry in Errors,
// keyed by method name, to make that method fail.
type Fake struct {
	mu sync.Mutex

	Calls  []string
	Errors map[string]error

	PaymentResult      gatewaydomain.Payment
	Payments           map[string]gatewaydomain.Payment
	Subscriptions      map[string]gatewaydomain.Subscription
	SubscriptionResult gatewaydomain.Subscription
	PlanID             string
	CustomerID         string
	CardID             string
	CardToken          string
	SavedCardToken     string
	CustomerEmails     map[string]string

	Charges          []gatewaydomain.ChargeRequest
	PlanRequests     []gatewaydomain.PlanRequest
	SubscriptionReqs []gatewaydomain.SubscriptionRequest
}

func NewFake() *Fake {
	return &Fake{
		Errors:             map[string]error{},
		Payments:           map[string]gatewaydomain.Payment{},
		Subscriptions:      map[string]gatewaydomain.Subscription{},
		CustomerEmails:     map[string]string{},
		PaymentResult:      gatewaydomain.Payment{ID: "pay_1", Status: "approved"},
		SubscriptionResult: gatewaydomain.Subscription{ID: "sub_1", Status: "pending"},
		PlanID:             "plan_1",
		CustomerID:         "cus_1",
		CardID:             "card_1",
		CardToken:          "tok_server",
		SavedCardToken:     "tok_saved",
	}
}

// Fail makes the named method return err until cleared with Fail(method, nil).
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, method)
		return
	}
	f.Errors[method] = err
}

func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *Fake) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, method)
	return f.Errors[method]
}

func (f *Fake) CreatePayment(_ context.Context, req gatewaydomain.ChargeRequest) (*gatewaydomain.Payment, error) {
	if err := f.record("CreatePayment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Charges = append(f.Charges, req)
	out := f.PaymentResult
	out.ExternalReference = req.ExternalReference
	return &out, nil
}

func (f *Fake) GetPayment(_ context.Context, id string) (*gatewaydomain.Payment, error) {
	if err := f.record("GetPayment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Payments[id]
	if !ok {
		return nil, &gatewaydomain.Error{StatusCode: 404, Code: "not_found", Message: fmt.Sprintf("payment %s not found", id)}
	}
	return &p, nil
}

func (f *Fake) GetOrCreateCustomer(_ context.Context, email string) (string, error) {
	if err := f.record("GetOrCreateCustomer"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.CustomerEmails[f.CustomerID]; !ok {
		f.CustomerEmails[f.CustomerID] = email
	}
	return f.CustomerID, nil
}

func (f *Fake) SaveCardToCustomer(_ context.Context, _, _ string) (string, error) {
	if err := f.record("SaveCardToCustomer"); err != nil {
		return "", err
	}
	return f.CardID, nil
}

func (f *Fake) GetCustomerEmail(_ context.Context, customerID string) (string, error) {
	if err := f.record("GetCustomerEmail"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CustomerEmails[customerID], nil
}

func (f *Fake) CreateCardToken(_ context.Context, _ gatewaydomain.CardTokenRequest) (string, error) {
	if err := f.record("CreateCardToken"); err != nil {
		return "", err
	}
	return f.CardToken, nil
}

func (f *Fake) CreateCardTokenFromSaved(_ context.Context, _, _, _ string) (string, error) {
	if err := f.record("CreateCardTokenFromSaved"); err != nil {
		return "", err
	}
	return f.SavedCardToken, nil
}

func (f *Fake) CreatePlan(_ context.Context, req gatewaydomain.PlanRequest) (*gatewaydomain.Plan, error) {
	if err := f.record("CreatePlan"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PlanRequests = append(f.PlanRequests, req)
	return &gatewaydomain.Plan{ID: f.PlanID}, nil
}

func (f *Fake) CreateSubscription(_ context.Context, req gatewaydomain.SubscriptionRequest) (*gatewaydomain.Subscription, error) {
	if err := f.record("CreateSubscription"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubscriptionReqs = append(f.SubscriptionReqs, req)
	out := f.SubscriptionResult
	return &out, nil
}

func (f *Fake) GetSubscription(_ context.Context, id string) (*gatewaydomain.Subscription, error) {
	if err := f.record("GetSubscription"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Subscriptions[id]
	if !ok {
		return nil, &gatewaydomain.Error{StatusCode: 404, Code: "not_found", Message: fmt.Sprintf("preapproval %s not found", id)}
	}
	return &s, nil
}

func (f *Fake) CancelSubscription(_ context.Context, id string) (*gatewaydomain.Subscription, error) {
	if err := f.record("CancelSubscription"); err != nil {
		return nil, err
	}
	return &gatewaydomain.Subscription{ID: id, Status: "cancelled"}, nil
}

func (f *Fake) ListPaymentMethods(context.Context) (json.RawMessage, error) {
	if err := f.record("ListPaymentMethods"); err != nil {
		return nil, err
	}
	return json.RawMessage(`[{"id":"visa"}]`), nil
}

func (f *Fake) PaymentMethodByBIN(_ context.Context, bin string) (json.RawMessage, error) {
	if err := f.record("PaymentMethodByBIN"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"id":"visa"}`), nil
}

func (f *Fake) Installments(context.Context, string, int64, string) (json.RawMessage, error) {
	if err := f.record("Installments"); err != nil {
		return nil, err
	}
	return json.RawMessage(`[{"payer_costs":[{"installments":1}]}]`), nil
}

func (f *Fake) IdentificationTypes(context.Context) (json.RawMessage, error) {
	if err := f.record("IdentificationTypes"); err != nil {
		return nil, err
	}
	return json.RawMessage(`[{"id":"DNI"}]`), nil
}

func (f *Fake) CreatePublicCardToken(context.Context, gatewaydomain.CardTokenRequest) (json.RawMessage, error) {
	if err := f.record("CreatePublicCardToken"); err != nil {
		return nil, err
	}
	return json.RawMessage(`{"id":"tok_public"}`), nil
}

var (
	_ gatewaydomain.Gateway = (*Fake)(nil)
	_ gatewaydomain.Catalog = (*Fake)(nil)
)
