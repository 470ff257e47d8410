package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/railzwaylabs/payments/internal/config"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gateway.mercadopago",
	fx.Provide(New),
	fx.Provide(
		func(c *Client) gatewaydomain.Gateway { return c },
		func(c *Client) gatewaydomain.Catalog { return c },
	),
)

const (
	breakerName      = "mercadopago"
	maxMessageLength = 200
)

type auth int

const (
	authAccessToken auth = iota
	authPublicKey
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *observability.Metrics `optional:"true"`
	Tracing trace.TracerProvider   `optional:"true"`
}

// Client talks to the MercadoPago REST API. It is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	publicKey   string

	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	metrics *observability.Metrics
	tracer  trace.Tracer
	log     *zap.Logger
}

func New(p Params) *Client {
	gw := p.Config.Gateway
	tp := p.Tracing
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	c := &Client{
		baseURL:     strings.TrimRight(gw.BaseURL, "/"),
		accessToken: gw.AccessToken,
		publicKey:   gw.PublicKey,
		http:        &http.Client{Timeout: gw.Timeout},
		metrics:     p.Metrics,
		tracer:      tp.Tracer("github.com/railzwaylabs/payments/internal/gateway/mercadopago"),
		log:         p.Log.Named("gateway.mercadopago"),
	}

	failures := gw.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     gw.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client errors are the caller's fault and say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			gwErr, ok := gatewaydomain.AsError(err)
			return ok && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if c.metrics != nil {
				c.metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

type request struct {
	op             string
	method         string
	path           string
	query          url.Values
	body           any
	idempotencyKey string
	auth           auth
}

// do executes one call through the breaker and returns the raw success body.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "mercadopago."+r.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		),
	)
	defer span.End()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &gatewaydomain.Error{
			StatusCode: http.StatusServiceUnavailable,
			Code:       gatewaydomain.CodeUnavailable,
			Message:    "payment gateway temporarily unavailable",
		}
	}

	if c.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.GatewayRequests.WithLabelValues(r.op, outcome).Inc()
		c.metrics.GatewayDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if gwErr, ok := gatewaydomain.AsError(err); ok {
			span.SetAttributes(attribute.Int("http.response.status_code", gwErr.StatusCode))
		}
		c.log.Debug("gateway call failed", zap.String("operation", r.op), zap.Error(err))
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, error) {
	query := url.Values{}
	for k, v := range r.query {
		query[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, nil)
	if err != nil {
		return nil, err
	}

	switch r.auth {
	case authPublicKey:
		query.Set("public_key", c.publicKey)
	default:
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	req.URL.RawQuery = query.Encode()

	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("mercadopago: encode %s: %w", r.op, err)
		}
		req.Body = io.NopCloser(bytes.NewReader(payload))
		req.ContentLength = int64(len(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if r.method != http.MethodGet {
		key := r.idempotencyKey
		if key == "" {
			key = uuid.NewString()
		}
		req.Header.Set("X-Idempotency-Key", key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, raw)
	}
	return raw, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &gatewaydomain.Error{
			StatusCode: http.StatusGatewayTimeout,
			Code:       gatewaydomain.CodeTimeout,
			Message:    err.Error(),
		}
	}
	return &gatewaydomain.Error{
		StatusCode: http.StatusBadGateway,
		Code:       gatewaydomain.CodeTransport,
		Message:    err.Error(),
	}
}

// parseError reads the gateway's error envelope. The code comes from "code" or
// "error", the message from "message" or the first bytes of the raw body.
func parseError(status int, raw []byte) *gatewaydomain.Error {
	gwErr := &gatewaydomain.Error{StatusCode: status}

	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err == nil {
		gwErr.Body = json.RawMessage(raw)
		gwErr.Code = stringField(envelope, "code")
		if gwErr.Code == "" {
			gwErr.Code = stringField(envelope, "error")
		}
		gwErr.Message = stringField(envelope, "message")
	}

	if gwErr.Message == "" {
		text := string(raw)
		if len(text) > maxMessageLength {
			text = text[:maxMessageLength]
		}
		gwErr.Message = text
	}
	if gwErr.Body == nil {
		body, _ := json.Marshal(map[string]string{"text": string(raw)})
		gwErr.Body = body
	}
	return gwErr
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

func decode[T any](op string, raw []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &gatewaydomain.Error{
			StatusCode: http.StatusBadGateway,
			Code:       "invalid_response",
			Message:    fmt.Sprintf("decode %s response: %v", op, err),
			Body:       bodyOrNil(raw),
		}
	}
	return &out, nil
}

func bodyOrNil(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return nil
}

// flexibleID accepts both numeric and string identifiers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
