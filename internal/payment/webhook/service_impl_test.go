package webhook

import (
	"context"
	"errors"
	"net/url"
	"testing"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/gateway/gatewaytest"
	paymentdomain "github.com/railzwaylabs/payments/internal/payment/domain"
	subscriptiondomain "github.com/railzwaylabs/payments/internal/subscription/domain"
	"github.com/railzwaylabs/payments/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statusUpdate struct {
	gatewayID string
	status    string
}

// MockPaymentService records status updates pushed by the task handler.
type MockPaymentService struct {
	paymentdomain.Service
	mock.Mock
}

func (m *MockPaymentService) UpdateStatus(ctx context.Context, gatewayID string, status paymentdomain.PaymentStatus) (*paymentdomain.Payment, error) {
	args := m.Called(ctx, gatewayID, status)
	payment, _ := args.Get(0).(*paymentdomain.Payment)
	return payment, args.Error(1)
}

type stubSubscriptions struct {
	subscriptiondomain.Service
	updates []statusUpdate
}

func (s *stubSubscriptions) UpdateStatus(_ context.Context, gatewayID string, status subscriptiondomain.SubscriptionStatus) (*subscriptiondomain.Subscription, error) {
	s.updates = append(s.updates, statusUpdate{gatewayID, string(status)})
	return nil, nil
}

type harness struct {
	gateway       *gatewaytest.Fake
	queue         *taskqueue.Inline
	payments      *MockPaymentService
	subscriptions *stubSubscriptions
	reconciler    Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		gateway:       gatewaytest.NewFake(),
		queue:         &taskqueue.Inline{},
		payments:      &MockPaymentService{},
		subscriptions: &stubSubscriptions{},
	}
	handler := NewTaskHandler(TaskHandlerParams{
		Log:           zap.NewNop(),
		Payments:      h.payments,
		Subscriptions: h.subscriptions,
	})
	require.NoError(t, h.queue.Start(handler))
	h.reconciler = NewService(Params{
		Log:     zap.NewNop(),
		Gateway: h.gateway,
		Queue:   h.queue,
	})
	return h
}

func TestReconcilePaymentNotification(t *testing.T) {
	h := newHarness(t)
	h.gateway.Payments["123"] = gatewaydomain.Payment{ID: "123", Status: "approved"}
	h.payments.On("UpdateStatus", mock.Anything, "123", paymentdomain.PaymentStatusApproved).
		Return(&paymentdomain.Payment{Status: paymentdomain.PaymentStatusApproved}, nil).Once()

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"payment","data":{"id":"123"}}`), nil)

	assert.True(t, res.OK)
	require.Len(t, h.queue.Tasks, 1)
	assert.Equal(t, taskqueue.KindPaymentStatus, h.queue.Tasks[0].Kind)
	h.payments.AssertExpectations(t)
}

func TestReconcileNumericIDAndTopicField(t *testing.T) {
	h := newHarness(t)
	h.gateway.Payments["987654321"] = gatewaydomain.Payment{ID: "987654321", Status: "rejected"}

	h.payments.On("UpdateStatus", mock.Anything, "987654321", paymentdomain.PaymentStatusRejected).Return(nil, nil).Once()

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"topic":"payment","data":{"id":987654321}}`), nil)

	assert.True(t, res.OK)
	h.payments.AssertExpectations(t)
}

func TestReconcileSubscriptionTopics(t *testing.T) {
	for _, topic := range []string{TopicPreapproval, TopicAuthorizedPayment} {
		t.Run(topic, func(t *testing.T) {
			h := newHarness(t)
			h.gateway.Subscriptions["pre_1"] = gatewaydomain.Subscription{ID: "pre_1", Status: "authorized"}

			res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"`+topic+`","id":"pre_1"}`), nil)

			assert.True(t, res.OK)
			assert.Equal(t, []statusUpdate{{"pre_1", "authorized"}}, h.subscriptions.updates)
			h.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReconcileMissingResourceID(t *testing.T) {
	h := newHarness(t)

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"payment","data":{}}`), nil)

	assert.False(t, res.OK)
	assert.Zero(t, h.gateway.CallCount("GetPayment"))
	assert.Empty(t, h.queue.Tasks)
}

func TestReconcileAcknowledgesGatewayFailure(t *testing.T) {
	h := newHarness(t)
	h.gateway.Fail("GetPayment", errors.New("boom"))

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"payment","data":{"id":"123"}}`), nil)

	assert.True(t, res.OK)
	assert.Empty(t, h.queue.Tasks)
	h.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileAcknowledgesHandlerFailure(t *testing.T) {
	h := newHarness(t)
	h.gateway.Payments["123"] = gatewaydomain.Payment{ID: "123", Status: "approved"}
	h.payments.On("UpdateStatus", mock.Anything, "123", paymentdomain.PaymentStatusApproved).Return(nil, errors.New("db down"))

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"payment","data":{"id":"123"}}`), nil)

	assert.True(t, res.OK)
	assert.Len(t, h.queue.Tasks, 1)
}

func TestReconcileSkipsEmptyStatus(t *testing.T) {
	h := newHarness(t)
	h.gateway.Payments["123"] = gatewaydomain.Payment{ID: "123"}

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"payment","data":{"id":"123"}}`), nil)

	assert.True(t, res.OK)
	assert.Equal(t, 1, h.gateway.CallCount("GetPayment"))
	assert.Empty(t, h.queue.Tasks)
}

func TestReconcileIgnoresUnknownTopic(t *testing.T) {
	h := newHarness(t)

	res := h.reconciler.Reconcile(context.Background(), []byte(`{"type":"merchant_order","data":{"id":"1"}}`), nil)

	assert.True(t, res.OK)
	assert.Empty(t, h.gateway.Calls)
}

func TestParseNotification(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		query   url.Values
		want    Notification
	}{
		{"data id", `{"type":"payment","data":{"id":"1"}}`, nil, Notification{"payment", "1"}},
		{"top level id", `{"topic":"preapproval","id":"2"}`, nil, Notification{"preapproval", "2"}},
		{"data not an object", `{"type":"payment","data":"x","id":"3"}`, nil, Notification{"payment", "3"}},
		{"query fallback", ``, url.Values{"topic": {"payment"}, "id": {"4"}}, Notification{"payment", "4"}},
		{"invalid json", `{`, nil, Notification{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseNotification([]byte(tc.payload), tc.query))
		})
	}
}

func TestTaskHandlerRejectsUnknownKind(t *testing.T) {
	handler := NewTaskHandler(TaskHandlerParams{Log: zap.NewNop(), Payments: &MockPaymentService{}, Subscriptions: &stubSubscriptions{}})
	err := handler.Handle(context.Background(), taskqueue.Task{Kind: "refund"})
	assert.Error(t, err)
}

func TestMaskPayload(t *testing.T) {
	raw := []byte(`{"data":{"id":"1","card":{"number":"4111"},"items":[{"security_code":"123"}]}}`)
	masked := string(maskPayload(raw))
	assert.NotContains(t, masked, "4111")
	assert.NotContains(t, masked, `"123"`)
	assert.Contains(t, masked, `"id":"1"`)

	assert.Equal(t, []byte("not json"), maskPayload([]byte("not json")))
}
