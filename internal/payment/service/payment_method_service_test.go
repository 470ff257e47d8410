package service

import (
	"context"
	"testing"
	"time"

	gatewaydomain "github.com/railzwaylabs/payments/internal/gateway/domain"
	"github.com/railzwaylabs/payments/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(token string, isDefault bool) domain.CreatePaymentMethodInput {
	return domain.CreatePaymentMethodInput{
		CardTokenID:     token,
		LastFourDigits:  "3704",
		PaymentMethodID: "visa",
		CardholderName:  "APRO",
		ExpirationMonth: "11",
		ExpirationYear:  "2030",
		IsDefault:       isDefault,
	}
}

func TestCreatePaymentMethodKeepsSingleDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.methods.Create(ctx, "u1", card("tok_1", true))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.methods.Create(ctx, "u1", card("tok_2", true))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.methods.Create(ctx, "u1", card("tok_3", false))
	require.NoError(t, err)
	_, err = f.methods.Create(ctx, "u2", card("tok_other", true))
	require.NoError(t, err)

	require.Equal(t, int64(1), f.countDefaults(t, "u1"))
	require.Equal(t, int64(1), f.countDefaults(t, "u2"))

	def, err := f.methods.GetDefault(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, second.ID, def.ID)

	reloaded, err := f.methods.Get(ctx, first.ID, "u1")
	require.NoError(t, err)
	require.False(t, reloaded.IsDefault)
}

func TestUpdatePaymentMethodDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.methods.Create(ctx, "u1", card("tok_a", true))
	require.NoError(t, err)
	b, err := f.methods.Create(ctx, "u1", card("tok_b", false))
	require.NoError(t, err)

	yes := true
	updated, err := f.methods.Update(ctx, b.ID, "u1", domain.UpdatePaymentMethodInput{IsDefault: &yes})
	require.NoError(t, err)
	require.True(t, updated.IsDefault)
	require.Equal(t, int64(1), f.countDefaults(t, "u1"))

	def, err := f.methods.GetDefault(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, b.ID, def.ID)

	no := false
	updated, err = f.methods.Update(ctx, b.ID, "u1", domain.UpdatePaymentMethodInput{IsDefault: &no})
	require.NoError(t, err)
	require.False(t, updated.IsDefault)
	require.Equal(t, int64(0), f.countDefaults(t, "u1"))

	missing, err := f.methods.Update(ctx, a.ID, "someone-else", domain.UpdatePaymentMethodInput{IsDefault: &yes})
	require.NoError(t, err)
	require.Nil(t, missing)
	require.Equal(t, int64(0), f.countDefaults(t, "someone-else"))
}

func TestListPaymentMethodsOrdersDefaultFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def, err := f.methods.Create(ctx, "u1", card("tok_default", true))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	older, err := f.methods.Create(ctx, "u1", card("tok_older", false))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	newest, err := f.methods.Create(ctx, "u1", card("tok_newest", false))
	require.NoError(t, err)

	methods, err := f.methods.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, methods, 3)
	assert.Equal(t, def.ID, methods[0].ID)
	assert.Equal(t, newest.ID, methods[1].ID)
	assert.Equal(t, older.ID, methods[2].ID)
}

func TestCreatePaymentMethodVaultsCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := card("tok_client", true)
	input.PayerEmail = "a@b.com"
	input.CardNumber = "4509953566233704"
	input.SecurityCode = "123"

	method, err := f.methods.Create(ctx, "u1", input)
	require.NoError(t, err)
	require.True(t, method.Vaulted())
	require.Equal(t, "cus_1", *method.GatewayCustomerID)
	require.Equal(t, "card_1", *method.GatewayCardID)
	require.Equal(t, "tok_client", method.CardTokenID)
	require.Empty(t, method.Warnings)
	require.Equal(t, 1, f.gateway.CallCount("CreateCardToken"))
	require.Equal(t, 1, f.gateway.CallCount("SaveCardToCustomer"))
}

func TestCreatePaymentMethodVaultingFailureIsNotFatal(t *testing.T) {
	for _, method := range []string{"CreateCardToken", "GetOrCreateCustomer", "SaveCardToCustomer"} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t)
			f.gateway.Fail(method, &gatewaydomain.Error{StatusCode: 500, Message: "boom"})

			input := card("tok_client", false)
			input.PayerEmail = "a@b.com"
			input.CardNumber = "4509953566233704"

			created, err := f.methods.Create(context.Background(), "u1", input)
			require.NoError(t, err)
			require.Nil(t, created.GatewayCustomerID)
			require.Nil(t, created.GatewayCardID)
			require.Equal(t, []string{domain.WarningVaultingFailed}, created.Warnings)

			stored, err := f.methods.Get(context.Background(), created.ID, "u1")
			require.NoError(t, err)
			require.Equal(t, "tok_client", stored.CardTokenID)
			require.Nil(t, stored.GatewayCardID)
		})
	}
}

func TestCreatePaymentMethodSkipsVaultingWithoutEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.methods.Create(context.Background(), "u1", card("tok_1", false))
	require.NoError(t, err)
	require.Empty(t, f.gateway.Calls)
}

func TestCreatePaymentMethodValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.methods.Create(ctx, " ", card("tok_1", false))
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = f.methods.Create(ctx, "u1", card("", false))
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestGetAndDeletePaymentMethodScopedByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	method, err := f.methods.Create(ctx, "u1", card("tok_1", true))
	require.NoError(t, err)

	other, err := f.methods.Get(ctx, method.ID, "u2")
	require.NoError(t, err)
	require.Nil(t, other)

	deleted, err := f.methods.Delete(ctx, method.ID, "u2")
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = f.methods.Delete(ctx, method.ID, "u1")
	require.NoError(t, err)
	require.True(t, deleted)

	gone, err := f.methods.Get(ctx, method.ID, "u1")
	require.NoError(t, err)
	require.Nil(t, gone)

	def, err := f.methods.GetDefault(ctx, "u1")
	require.NoError(t, err)
	require.Nil(t, def)
}
