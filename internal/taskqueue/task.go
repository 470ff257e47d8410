// Package taskqueue moves follow-up work off the request path.
package taskqueue

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindPaymentStatus      Kind = "payment.status"
	KindSubscriptionStatus Kind = "subscription.status"
)

// Task asks a worker to apply a gateway-reported status to the local record
// identified by GatewayID.
type Task struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	GatewayID  string    `json:"gateway_id"`
	Status     string    `json:"status"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask stamps the task with a ULID so ids sort by enqueue time in logs.
func NewTask(kind Kind, gatewayID, status string) Task {
	return Task{
		ID:         ulid.Make().String(),
		Kind:       kind,
		GatewayID:  gatewayID,
		Status:     status,
		EnqueuedAt: time.Now().UTC(),
	}
}

type Handler interface {
	Handle(ctx context.Context, task Task) error
}

type HandlerFunc func(ctx context.Context, task Task) error

func (f HandlerFunc) Handle(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// Queue accepts tasks and, once started, feeds them to a handler. Handler errors
// are logged and the task is dropped.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Start(handler Handler) error
	Stop(ctx context.Context) error
}
