package service

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/payments/internal/clock"
	"github.com/railzwaylabs/payments/internal/config"
	"github.com/railzwaylabs/payments/internal/gateway/gatewaytest"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"github.com/railzwaylabs/payments/internal/payment/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	gateway *gatewaytest.Fake
	clock   *clock.Fixed
	methods domain.PaymentMethodService
	svc     domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Payment{}, &domain.PaymentMethod{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := gatewaytest.NewFake()
	clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	paymentRepo, methodRepo := repository.Provide(db)

	return &fixture{
		db:      db,
		gateway: fake,
		clock:   clk,
		methods: NewPaymentMethodService(PaymentMethodParams{
			DB:      db,
			Log:     zap.NewNop(),
			GenID:   node,
			Clock:   clk,
			Repo:    methodRepo,
			Gateway: fake,
		}),
		svc: NewService(Params{
			DB:      db,
			Log:     zap.NewNop(),
			Cfg:     config.Config{DefaultCurrency: "ARS"},
			GenID:   node,
			Clock:   clk,
			Gateway: fake,
			Repo:    paymentRepo,
			Methods: methodRepo,
		}),
	}
}

func (f *fixture) countPayments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&n).Error)
	return n
}

func (f *fixture) countDefaults(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
