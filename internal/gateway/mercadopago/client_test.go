package mercadopago

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/railzwaylabs/payments/internal/config"
	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/money"
	"github.com/railzwaylabs/payments/internal/observability"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*config.GatewayConfig)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw := config.GatewayConfig{
		BaseURL:         srv.URL,
		AccessToken:     "TEST-token",
		PublicKey:       "TEST-public",
		Timeout:         2 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  time.Minute,
	}
	for _, fn := range tweak {
		fn(&gw)
	}

	return New(Params{
		Config:  config.Config{Gateway: gw},
		Log:     zap.NewNop(),
		Metrics: observability.NewMetrics(),
	})
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCreatePaymentCustomerPayer(t *testing.T) {
	var (
		body   map[string]any
		header http.Header
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments", r.URL.Path)
		header = r.Header.Clone()
		body = readJSON(t, r)
		_, _ = w.Write([]byte(`{"id": 987654321, "status": "approved", "status_detail": "accredited"}`))
	})

	result, err := client.CreatePayment(context.Background(), gatewaydomain.ChargeRequest{
		Amount:          1050,
		Currency:        "ARS",
		Token:           "tok_fresh",
		PaymentMethodID: "visa",
		Payer:           gatewaydomain.Payer{Email: "a@b.com", Type: gatewaydomain.PayerTypeCustomer, ID: "cus_1"},
		CollectorID:     "42",
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)
	require.Equal(t, "987654321", result.ID)
	require.Equal(t, "approved", result.Status)
	require.Equal(t, "accredited", result.StatusDetail)

	require.Equal(t, "Bearer TEST-token", header.Get("Authorization"))
	require.Equal(t, "idem-1", header.Get("X-Idempotency-Key"))

	require.Equal(t, 10.5, body["transaction_amount"])
	require.Equal(t, float64(1), body["installments"])
	require.Equal(t, "42", body["collector_id"])
	require.NotContains(t, body, "payment_method_id")
	require.Equal(t, map[string]any{"type": "customer", "id": "cus_1"}, body["payer"])
}

func TestCreatePaymentEmailPayer(t *testing.T) {
	var (
		body map[string]any
		key  string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("X-Idempotency-Key")
		body = readJSON(t, r)
		_, _ = w.Write([]byte(`{"id": "p_1", "status": "in_process"}`))
	})

	result, err := client.CreatePayment(context.Background(), gatewaydomain.ChargeRequest{
		Amount:            2500,
		Currency:          "ARS",
		Token:             "tok_1",
		Installments:      3,
		PaymentMethodID:   "master",
		Description:       "order 1",
		ExternalReference: "ref-1",
		Payer:             gatewaydomain.Payer{Email: "guest@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, "p_1", result.ID)
	require.Equal(t, "in_process", result.Status)

	require.NotEmpty(t, key)
	require.Equal(t, float64(25), body["transaction_amount"])
	require.Equal(t, float64(3), body["installments"])
	require.Equal(t, "master", body["payment_method_id"])
	require.Equal(t, "order 1", body["description"])
	require.Equal(t, "ref-1", body["external_reference"])
	require.Equal(t, map[string]any{"email": "guest@example.com"}, body["payer"])
}

func TestErrorEnvelope(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "bad_request", "message": "invalid card token", "status": 400}`))
		})

		_, err := client.GetPayment(context.Background(), "1")
		gwErr, ok := gatewaydomain.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		require.Equal(t, "bad_request", gwErr.Code)
		require.Equal(t, "invalid card token", gwErr.Message)
		require.JSONEq(t, `{"error": "bad_request", "message": "invalid card token", "status": 400}`, string(gwErr.Body))
	})

	t.Run("code wins over error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code": 2000, "error": "not_found", "message": "Payment not found"}`))
		})

		_, err := client.GetPayment(context.Background(), "1")
		gwErr, ok := gatewaydomain.AsError(err)
		require.True(t, ok)
		require.Equal(t, "2000", gwErr.Code)
		require.Equal(t, http.StatusNotFound, gwErr.HTTPStatus())
	})

	t.Run("plain text body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("upstream exploded"))
		})

		_, err := client.GetPayment(context.Background(), "1")
		gwErr, ok := gatewaydomain.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusInternalServerError, gwErr.StatusCode)
		require.Empty(t, gwErr.Code)
		require.Equal(t, "upstream exploded", gwErr.Message)
		require.Equal(t, http.StatusBadGateway, gwErr.HTTPStatus())
	})
}

func TestGetOrCreateCustomer(t *testing.T) {
	t.Run("existing", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/customers/search", r.URL.Path)
			require.Equal(t, "a@b.com", r.URL.Query().Get("email"))
			_, _ = w.Write([]byte(`{"results": [{"id": "cus_existing", "email": "a@b.com"}]}`))
		})

		id, err := client.GetOrCreateCustomer(context.Background(), "a@b.com")
		require.NoError(t, err)
		require.Equal(t, "cus_existing", id)
	})

	t.Run("created when search is empty", func(t *testing.T) {
		var created map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/customers/search":
				_, _ = w.Write([]byte(`{"results": []}`))
			case "/v1/customers":
				require.Equal(t, http.MethodPost, r.Method)
				created = readJSON(t, r)
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id": "cus_new"}`))
			default:
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
		})

		id, err := client.GetOrCreateCustomer(context.Background(), "new@b.com")
		require.NoError(t, err)
		require.Equal(t, "cus_new", id)
		require.Equal(t, "new@b.com", created["email"])
	})
}

func TestCreateCardTokenNormalizesYear(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/card_tokens", r.URL.Path)
		require.Empty(t, r.URL.Query().Get("public_key"))
		body = readJSON(t, r)
		_, _ = w.Write([]byte(`{"id": "tok_server"}`))
	})

	token, err := client.CreateCardToken(context.Background(), gatewaydomain.CardTokenRequest{
		CardNumber:      "4509 9535 6623 3704",
		SecurityCode:    "123",
		ExpirationMonth: "11",
		ExpirationYear:  "27",
		CardholderName:  "APRO",
	})
	require.NoError(t, err)
	require.Equal(t, "tok_server", token)

	require.Equal(t, "4509953566233704", body["card_number"])
	require.Equal(t, "2027", body["expiration_year"])
	cardholder := body["cardholder"].(map[string]any)
	require.Equal(t, "APRO", cardholder["name"])
	require.Equal(t, "DNI", cardholder["identification"].(map[string]any)["type"])
}

func TestCreateCardTokenFromSaved(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body = readJSON(t, r)
		_, _ = w.Write([]byte(`{"id": "tok_saved"}`))
	})

	token, err := client.CreateCardTokenFromSaved(context.Background(), "cus_1", "card_1", "")
	require.NoError(t, err)
	require.Equal(t, "tok_saved", token)
	require.Equal(t, map[string]any{"customer_id": "cus_1", "card_id": "card_1"}, body)
}

func TestPreapprovalCalls(t *testing.T) {
	var planBody, subBody, cancelBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/preapproval_plan":
			planBody = readJSON(t, r)
			_, _ = w.Write([]byte(`{"id": "plan_1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/preapproval":
			subBody = readJSON(t, r)
			_, _ = w.Write([]byte(`{"id": "sub_1", "status": "authorized", "date_approved": "2026-01-01T00:00:00.000-03:00"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/preapproval/sub_1":
			cancelBody = readJSON(t, r)
			_, _ = w.Write([]byte(`{"id": "sub_1", "status": "cancelled"}`))
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	plan, err := client.CreatePlan(ctx, gatewaydomain.PlanRequest{
		Reason: "Pro", Amount: 100000, Currency: "ARS", Frequency: 1, FrequencyType: "months",
	})
	require.NoError(t, err)
	require.Equal(t, "plan_1", plan.ID)
	recurring := planBody["auto_recurring"].(map[string]any)
	require.Equal(t, "months", recurring["frequency_type"])
	require.Equal(t, float64(1000), recurring["transaction_amount"])
	require.Equal(t, []any{"credit_card", "debit_card"}, planBody["payment_methods_allowed"])

	sub, err := client.CreateSubscription(ctx, gatewaydomain.SubscriptionRequest{
		PlanID: "plan_1", Reason: "Pro", PayerEmail: "a@b.com", CardTokenID: "tok_1", ExternalReference: "77",
	})
	require.NoError(t, err)
	require.Equal(t, "sub_1", sub.ID)
	require.True(t, sub.Approved())
	require.Equal(t, "authorized", subBody["status"])
	require.Equal(t, "77", subBody["external_reference"])
	require.NotContains(t, subBody, "notification_url")

	cancelled, err := client.CancelSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.Equal(t, "cancelled", cancelled.Status)
	require.Equal(t, map[string]any{"status": "cancelled"}, cancelBody)
}

func TestCatalogUsesPublicKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "TEST-public", r.URL.Query().Get("public_key"))
		require.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/payment_methods/search":
			require.Equal(t, "450995", r.URL.Query().Get("bins"))
			require.Equal(t, "NONE", r.URL.Query().Get("marketplace"))
			_, _ = w.Write([]byte(`{"results": [{"id": "visa"}, {"id": "debvisa"}]}`))
		case "/v1/payment_methods/installments":
			require.Equal(t, "12.5", r.URL.Query().Get("amount"))
			_, _ = w.Write([]byte(`[{"payer_costs": []}]`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	method, err := client.PaymentMethodByBIN(ctx, "450995")
	require.NoError(t, err)
	require.JSONEq(t, `{"id": "visa"}`, string(method))

	installments, err := client.Installments(ctx, "450995", 1250, "ARS")
	require.NoError(t, err)
	require.JSONEq(t, `[{"payer_costs": []}]`, string(installments))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(gw *config.GatewayConfig) {
		gw.BreakerFailures = 2
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.GetPayment(ctx, "1")
		gwErr, ok := gatewaydomain.AsError(err)
		require.True(t, ok)
		require.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	}

	_, err := client.GetPayment(ctx, "1")
	gwErr, ok := gatewaydomain.AsError(err)
	require.True(t, ok)
	require.Equal(t, gatewaydomain.CodeUnavailable, gwErr.Code)
	require.Equal(t, http.StatusServiceUnavailable, gwErr.HTTPStatus())
	require.Equal(t, int32(2), hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad_request"}`))
	}, func(gw *config.GatewayConfig) {
		gw.BreakerFailures = 1
	})

	for i := 0; i < 3; i++ {
		_, err := client.GetPayment(context.Background(), "1")
		require.Error(t, err)
	}
	require.Equal(t, int32(3), hits.Load())
}

func TestTimeoutSurfacesAsGatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}, func(gw *config.GatewayConfig) {
		gw.Timeout = 20 * time.Millisecond
	})

	_, err := client.GetPayment(context.Background(), "1")
	gwErr, ok := gatewaydomain.AsError(err)
	require.True(t, ok)
	require.Equal(t, gatewaydomain.CodeTimeout, gwErr.Code)
	require.Equal(t, http.StatusGatewayTimeout, gwErr.HTTPStatus())
}

func TestCreatePaymentCustomerPayerWithoutVaultedID(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body = readJSON(t, r)
		_, _ = w.Write([]byte(`{"id": "p_2", "status": "approved"}`))
	})

	_, err := client.CreatePayment(context.Background(), gatewaydomain.ChargeRequest{
		Amount:          100000,
		Currency:        "ARS",
		Token:           "tok_stored",
		PaymentMethodID: "visa",
		Payer:           gatewaydomain.Payer{Email: "a@b.com", Type: gatewaydomain.PayerTypeCustomer},
	})
	require.NoError(t, err)

	require.Equal(t, float64(1000), body["transaction_amount"])
	require.Equal(t, map[string]any{"email": "a@b.com", "type": "customer"}, body["payer"])
	require.NotContains(t, body, "payment_method_id")
}

func TestWireAmountsAreMajorUnits(t *testing.T) {
	require.Equal(t, map[string]any{
		"frequency":          float64(1),
		"frequency_type":     "months",
		"transaction_amount": float64(1000),
		"currency_id":        "ARS",
	}, toMap(t, autoRecurringBody{
		Frequency:         1,
		FrequencyType:     "months",
		TransactionAmount: money.Number(100000, "ARS"),
		CurrencyID:        "ARS",
	}))

	clp := buildPaymentBody(gatewaydomain.ChargeRequest{Amount: 1050, Currency: "CLP", Token: "tok"})
	require.Equal(t, "1050", clp.TransactionAmount.String())
	cents := buildPaymentBody(gatewaydomain.ChargeRequest{Amount: 1050, Currency: "ARS", Token: "tok"})
	require.Equal(t, "10.5", cents.TransactionAmount.String())
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestGatewayCallsAreTraced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"payment not found","error":"not_found","status":404}`)
	}))
	t.Cleanup(srv.Close)

	recorder := tracetest.NewSpanRecorder()
	c := New(Params{
		Config: config.Config{Gateway: config.GatewayConfig{
			BaseURL:     srv.URL,
			AccessToken: "TEST-token",
			Timeout:     time.Second,
		}},
		Log:     zap.NewNop(),
		Tracing: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)),
	})

	_, err := c.GetPayment(context.Background(), "123")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "mercadopago.get_payment", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)
}
