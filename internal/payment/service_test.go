package payment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment"
	"github.com/hvacmart/storefront/internal/payment/clients"
	"github.com/hvacmart/storefront/internal/testutil"
)

const secret = "rzp_secret"

type fixture struct {
	db     *gorm.DB
	orders *order.Service
	svc    *payment.Service
	calls  int
	fail   bool
	user   *domain.User
	order  *domain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.NewDB(t)}
	f.orders = order.NewService(f.db, order.DefaultSettings, &events.Recorder{}, nil)
	gateway := clients.GatewayFunc(func(ctx context.Context, amount int64, currency, receipt string) (*clients.GatewayOrder, error) {
		f.calls++
		if f.fail {
			return nil, errors.New("connection refused")
		}
		return &clients.GatewayOrder{ID: fmt.Sprintf("order_gw%d", f.calls), Amount: amount, Currency: currency, Receipt: receipt}, nil
	})
	f.svc = payment.NewService(f.db, gateway, f.orders, payment.Config{KeyID: "rzp_key", KeySecret: secret})

	f.user = testutil.CreateUser(t, f.db, "asha@example.com")
	addr := testutil.CreateAddress(t, f.db, f.user.ID)
	p := testutil.CreateProduct(t, f.db, "AC-15T", "1000", 5)
	o, err := f.orders.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:    f.user.ID,
		Items:     []order.ItemInput{{ProductID: p.ID, Quantity: 2}},
		AddressID: addr.ID,
	})
	require.NoError(t, err)
	f.order = o
	return f
}

func TestToPaise(t *testing.T) {
	assert.Equal(t, int64(236000), payment.ToPaise(decimal.RequireFromString("2360")))
	assert.Equal(t, int64(56982), payment.ToPaise(decimal.RequireFromString("569.82")))
}

func TestCreatePaymentReusesPendingAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	co, err := f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_gw1", co.GatewayOrderID)
	assert.Equal(t, int64(236000), co.AmountPaise)
	assert.Equal(t, "rzp_key", co.KeyID)
	assert.Equal(t, "INR", co.Currency)

	again, err := f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, co.PaymentID, again.PaymentID)
	assert.Equal(t, 1, f.calls)
}

func TestCreatePaymentRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := testutil.CreateUser(t, f.db, "ravi@example.com")
	_, err := f.svc.CreatePayment(ctx, f.order.ID, other.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	f.fail = true
	_, err = f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)

	var count int64
	require.NoError(t, f.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = f.orders.Cancel(ctx, f.order.ID, f.user.ID, "")
	require.NoError(t, err)
	_, err = f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
	assert.ErrorIs(t, err, payment.ErrOrderNotPayable)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid signature confirms", func(t *testing.T) {
		f := newFixture(t)
		co, err := f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
		require.NoError(t, err)

		in := payment.VerifyInput{
			GatewayOrderID:   co.GatewayOrderID,
			GatewayPaymentID: "pay_1",
			Signature:        payment.Signature(secret, co.GatewayOrderID, "pay_1"),
		}
		o, err := f.svc.Verify(ctx, f.user.ID, in)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderConfirmed, o.Status)

		// a replay is accepted and changes nothing
		o, err = f.svc.Verify(ctx, 0, in)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderConfirmed, o.Status)
		inv := testutil.GetInventory(t, f.db, f.order.Items[0].ProductID)
		assert.Equal(t, 3, inv.StockQuantity)
		assert.Equal(t, 0, inv.ReservedQuantity)
	})

	t.Run("mismatch only fails the payment", func(t *testing.T) {
		f := newFixture(t)
		co, err := f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, f.user.ID, payment.VerifyInput{
			GatewayOrderID:   co.GatewayOrderID,
			GatewayPaymentID: "pay_1",
			Signature:        payment.Signature("wrong", co.GatewayOrderID, "pay_1"),
		})
		assert.ErrorIs(t, err, payment.ErrSignatureMismatch)

		var pay domain.Payment
		require.NoError(t, f.db.First(&pay, co.PaymentID).Error)
		assert.Equal(t, domain.PaymentFailed, pay.Status)

		o, err := f.orders.Get(ctx, f.order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderPending, o.Status)
		inv := testutil.GetInventory(t, f.db, f.order.Items[0].ProductID)
		assert.Equal(t, 5, inv.StockQuantity)
		assert.Equal(t, 2, inv.ReservedQuantity)

		// the customer can retry with a fresh gateway order
		retry, err := f.svc.CreatePayment(ctx, f.order.ID, f.user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, co.PaymentID, retry.PaymentID)
	})

	t.Run("unknown gateway order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(ctx, 0, payment.VerifyInput{GatewayOrderID: "order_x", GatewayPaymentID: "p", Signature: "s"})
		assert.ErrorIs(t, err, order.ErrPaymentNotFound)
	})
}
