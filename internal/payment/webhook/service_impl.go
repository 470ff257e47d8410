package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/railzwaylabs/payments/internal/taskqueue"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TopicPayment           = "payment"
	TopicPreapproval       = "preapproval"
	TopicAuthorizedPayment = "authorized_payment"
)

// Result is the acknowledgement body. Delivery is always acknowledged with 200;
// OK is false only when the notification carried no resource id.
type Result struct {
	OK bool `json:"ok"`
}

type Notification struct {
	Topic      string
	ResourceID string
}

type Reconciler interface {
	Reconcile(ctx context.Context, payload []byte, query url.Values) Result
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Gateway gatewaydomain.Gateway
	Queue   taskqueue.Queue
	Metrics *observability.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	gateway gatewaydomain.Gateway
	queue   taskqueue.Queue
	metrics *observability.Metrics
}

func NewService(p Params) Reconciler {
	return &Service{
		log:     p.Log.Named("payment.webhook"),
		gateway: p.Gateway,
		queue:   p.Queue,
		metrics: p.Metrics,
	}
}

// ParseNotification reads the topic from "type" or "topic" and the resource id
// from data.id, falling back to a top-level id. Query parameters are consulted
// for legacy IPN deliveries that carry no body fields.
func ParseNotification(payload []byte, query url.Values) Notification {
	var n Notification

	var body map[string]any
	if len(payload) > 0 && json.Unmarshal(payload, &body) == nil {
		n.Topic = firstString(body, "type", "topic")
		if data, ok := body["data"].(map[string]any); ok {
			n.ResourceID = idString(data["id"])
		}
		if n.ResourceID == "" {
			n.ResourceID = idString(body["id"])
		}
	}

	if n.Topic == "" {
		n.Topic = strings.TrimSpace(firstNonEmpty(query.Get("type"), query.Get("topic")))
	}
	if n.ResourceID == "" {
		n.ResourceID = strings.TrimSpace(firstNonEmpty(query.Get("data.id"), query.Get("id")))
	}
	return n
}

// Reconcile re-fetches the authoritative state from the gateway and enqueues the
// local update. Errors are logged, never returned.
func (s *Service) Reconcile(ctx context.Context, payload []byte, query url.Values) Result {
	n := ParseNotification(payload, query)
	if n.ResourceID == "" {
		s.log.Warn("webhook without resource id", zap.String("topic", n.Topic), zap.ByteString("payload", maskPayload(payload)))
		s.observe(n.Topic, "missing_id")
		return Result{OK: false}
	}

	var (
		task taskqueue.Task
		err  error
	)
	switch n.Topic {
	case TopicPayment:
		task, err = s.paymentTask(ctx, n.ResourceID)
	case TopicPreapproval, TopicAuthorizedPayment:
		task, err = s.subscriptionTask(ctx, n.ResourceID)
	default:
		s.log.Debug("webhook topic ignored", zap.String("topic", n.Topic), zap.String("resource_id", n.ResourceID))
		s.observe(n.Topic, "ignored")
		return Result{OK: true}
	}

	if err != nil {
		s.log.Error("webhook reconciliation failed",
			zap.String("topic", n.Topic),
			zap.String("resource_id", n.ResourceID),
			zap.Error(err),
		)
		s.observe(n.Topic, "error")
		return Result{OK: true}
	}
	if task.Kind == "" {
		s.observe(n.Topic, "no_status")
		return Result{OK: true}
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.log.Error("webhook task enqueue failed",
			zap.String("topic", n.Topic),
			zap.String("resource_id", n.ResourceID),
			zap.Error(err),
		)
		s.observe(n.Topic, "error")
		return Result{OK: true}
	}

	s.observe(n.Topic, "enqueued")
	return Result{OK: true}
}

func (s *Service) paymentTask(ctx context.Context, id string) (taskqueue.Task, error) {
	payment, err := s.gateway.GetPayment(ctx, id)
	if err != nil {
		return taskqueue.Task{}, fmt.Errorf("fetch payment: %w", err)
	}
	if payment.Status == "" {
		return taskqueue.Task{}, nil
	}
	return taskqueue.NewTask(taskqueue.KindPaymentStatus, id, payment.Status), nil
}

func (s *Service) subscriptionTask(ctx context.Context, id string) (taskqueue.Task, error) {
	sub, err := s.gateway.GetSubscription(ctx, id)
	if err != nil {
		return taskqueue.Task{}, fmt.Errorf("fetch subscription: %w", err)
	}
	if sub.Status == "" {
		return taskqueue.Task{}, nil
	}
	return taskqueue.NewTask(taskqueue.KindSubscriptionStatus, id, sub.Status), nil
}

func (s *Service) observe(topic, outcome string) {
	if s.metrics == nil {
		return
	}
	if topic == "" {
		topic = "unknown"
	}
	s.metrics.WebhookEvents.WithLabelValues(topic, outcome).Inc()
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "card", "card_number", "security_code", "cardholder", "payer", "identification":
			m[k] = "***"
		default:
			if nested, ok := v.(map[string]any); ok {
				maskMap(nested)
			} else if arr, ok := v.([]any); ok {
				for _, item := range arr {
					if itemMap, ok := item.(map[string]any); ok {
						maskMap(itemMap)
					}
				}
			}
		}
	}
}
