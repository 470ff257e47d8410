package db

import (
	"testing"

	"github.com/railzwaylabs/payments/internal/config"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewRecordsQuerySpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{
		AppName:  "payments",
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:?cache=shared"},
	}
	conn, err := New(lc, cfg, zap.NewNop(), tp)
	require.NoError(t, err)
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	require.Equal(t, 1, one)

	require.NotEmpty(t, recorder.Ended())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	require.ErrorContains(t, err, "unsupported driver")
}
