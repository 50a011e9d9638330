package order_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/testutil"
	"github.com/hvacmart/storefront/pkg/clock"
)

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	svc     *order.Service
	rec     *events.Recorder
	clk     *clock.MockClock
	user    *domain.User
	addr    *domain.Address
	product *domain.Product
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &events.Recorder{}
	clk := clock.NewMockClock(start)
	user := testutil.CreateUser(t, db, "asha@example.com")
	return &fixture{
		db:      db,
		svc:     order.NewService(db, order.DefaultSettings, rec, clk),
		rec:     rec,
		clk:     clk,
		user:    user,
		addr:    testutil.CreateAddress(t, db, user.ID),
		product: testutil.CreateProduct(t, db, "AC-15T", "1000", stock),
	}
}

func (f *fixture) place(t *testing.T, qty int, method, coupon string) *domain.Order {
	t.Helper()
	o, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:        f.user.ID,
		Items:         []order.ItemInput{{ProductID: f.product.ID, Quantity: qty}},
		AddressID:     f.addr.ID,
		CouponCode:    coupon,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return o
}

func createPayment(t *testing.T, db *gorm.DB, o *domain.Order) *domain.Payment {
	t.Helper()
	gw := fmt.Sprintf("order_%d", o.ID)
	p := &domain.Payment{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Method:         domain.PayOnline,
		Amount:         o.Total,
		Currency:       order.Currency,
		Status:         domain.PaymentPending,
		GatewayOrderID: &gw,
		Receipt:        o.OrderNo,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestPlaceOrderFromCartReservesStock(t *testing.T) {
	f := newFixture(t, 5)
	testutil.AddToCart(t, f.db, f.user.ID, f.product.ID, 2)

	o, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:    f.user.ID,
		AddressID: f.addr.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, domain.PayOnline, o.PaymentMethod)
	assert.Equal(t, "2000.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", o.ShippingCost.StringFixed(2))
	assert.Equal(t, "360.00", o.TaxAmount.StringFixed(2))
	assert.Equal(t, "2360.00", o.Total.StringFixed(2))
	assert.Equal(t, "Pune", o.ShipCity)
	require.NotNil(t, o.ExpiresAt)
	assert.True(t, o.ExpiresAt.Equal(start.Add(30*time.Minute)))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "AC-15T", o.Items[0].Sku)

	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 5, inv.StockQuantity)
	assert.Equal(t, 2, inv.ReservedQuantity)

	var cartCount int64
	require.NoError(t, f.db.Model(&domain.CartItem{}).Where("user_id = ?", f.user.ID).Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount, "cart is kept until payment")
	assert.Equal(t, []string{events.TopicOrderPlaced}, f.rec.Topics())
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	t.Run("empty cart", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{UserID: f.user.ID, AddressID: f.addr.ID})
		assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	})

	t.Run("foreign address", func(t *testing.T) {
		other := testutil.CreateUser(t, f.db, "ravi@example.com")
		addr := testutil.CreateAddress(t, f.db, other.ID)
		_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{
			UserID:    f.user.ID,
			Items:     []order.ItemInput{{ProductID: f.product.ID, Quantity: 1}},
			AddressID: addr.ID,
		})
		assert.ErrorIs(t, err, order.ErrAddressNotFound)
	})

	t.Run("inactive product", func(t *testing.T) {
		p := testutil.CreateProduct(t, f.db, "AC-OLD", "500", 3)
		require.NoError(t, f.db.Model(p).Update("status", domain.ProductInactive).Error)
		_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{
			UserID:    f.user.ID,
			Items:     []order.ItemInput{{ProductID: p.ID, Quantity: 1}},
			AddressID: f.addr.ID,
		})
		assert.ErrorIs(t, err, order.ErrProductUnavailable)
	})

	t.Run("bad payment method", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{
			UserID:        f.user.ID,
			Items:         []order.ItemInput{{ProductID: f.product.ID, Quantity: 1}},
			AddressID:     f.addr.ID,
			PaymentMethod: "CHEQUE",
		})
		assert.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
	})

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{
			UserID:    f.user.ID,
			Items:     []order.ItemInput{{ProductID: f.product.ID, Quantity: 6}},
			AddressID: f.addr.ID,
		})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		var count int64
		require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Equal(t, 0, testutil.GetInventory(t, f.db, f.product.ID).ReservedQuantity)
	})
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t, 5)
	testutil.AddToCart(t, f.db, f.user.ID, f.product.ID, 2)
	o := f.place(t, 2, domain.PayOnline, "")
	pay := createPayment(t, f.db, o)
	ctx := context.Background()

	confirmed, err := f.svc.ConfirmPayment(ctx, pay.ID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.ExpiresAt)

	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 3, inv.StockQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)

	// replayed verification
	again, err := f.svc.ConfirmPayment(ctx, pay.ID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)

	inv = testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 3, inv.StockQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, pay.ID).Error)
	assert.Equal(t, domain.PaymentSuccess, stored.Status)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)

	var cartCount int64
	require.NoError(t, f.db.Model(&domain.CartItem{}).Where("user_id = ?", f.user.ID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	assert.Equal(t, []string{events.TopicOrderPlaced, events.TopicOrderConfirmed}, f.rec.Topics())
}

func TestFailPaymentKeepsReservation(t *testing.T) {
	f := newFixture(t, 5)
	o := f.place(t, 1, domain.PayOnline, "")
	pay := createPayment(t, f.db, o)

	require.NoError(t, f.svc.FailPayment(context.Background(), pay.ID, "signature mismatch"))

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, pay.ID).Error)
	assert.Equal(t, domain.PaymentFailed, stored.Status)
	assert.Equal(t, "signature mismatch", stored.FailureReason)

	got, err := f.svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, got.Status)
	assert.Equal(t, 1, testutil.GetInventory(t, f.db, f.product.ID).ReservedQuantity)

	err = f.svc.FailPayment(context.Background(), pay.ID, "again")
	assert.ErrorIs(t, err, order.ErrPaymentNotPending)

	_, err = f.svc.ConfirmPayment(context.Background(), pay.ID, "pay_x")
	assert.ErrorIs(t, err, order.ErrPaymentNotPending)
}

func TestCashOnDeliveryConfirmsImmediately(t *testing.T) {
	f := newFixture(t, 5)
	testutil.AddToCart(t, f.db, f.user.ID, f.product.ID, 1)
	o := f.place(t, 1, domain.PayCOD, "")

	assert.Equal(t, domain.OrderConfirmed, o.Status)
	assert.Nil(t, o.ExpiresAt)
	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 4, inv.StockQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)

	payments, err := f.svc.Payments(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PayCOD, payments[0].Method)

	// 1000 is above the free shipping threshold
	assert.Equal(t, "1180.00", o.Total.StringFixed(2))
	assert.Equal(t, []string{events.TopicOrderPlaced, events.TopicOrderConfirmed}, f.rec.Topics())
}

func TestCancelReturnsStock(t *testing.T) {
	ctx := context.Background()

	t.Run("pending releases reservation", func(t *testing.T) {
		f := newFixture(t, 5)
		o := f.place(t, 2, domain.PayOnline, "")
		pay := createPayment(t, f.db, o)

		cancelled, err := f.svc.Cancel(ctx, o.ID, f.user.ID, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, cancelled.Status)

		inv := testutil.GetInventory(t, f.db, f.product.ID)
		assert.Equal(t, 5, inv.StockQuantity)
		assert.Equal(t, 0, inv.ReservedQuantity)

		var stored domain.Payment
		require.NoError(t, f.db.First(&stored, pay.ID).Error)
		assert.Equal(t, domain.PaymentFailed, stored.Status)
	})

	t.Run("confirmed restocks", func(t *testing.T) {
		f := newFixture(t, 5)
		o := f.place(t, 2, domain.PayCOD, "")
		_, err := f.svc.Cancel(ctx, o.ID, 0, "out of service area")
		require.NoError(t, err)

		inv := testutil.GetInventory(t, f.db, f.product.ID)
		assert.Equal(t, 5, inv.StockQuantity)
		assert.Equal(t, 0, inv.ReservedQuantity)
	})

	t.Run("other customer cannot cancel", func(t *testing.T) {
		f := newFixture(t, 5)
		o := f.place(t, 1, domain.PayOnline, "")
		other := testutil.CreateUser(t, f.db, "ravi@example.com")
		_, err := f.svc.Cancel(ctx, o.ID, other.ID, "")
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("shipped cannot be cancelled", func(t *testing.T) {
		f := newFixture(t, 5)
		o := f.place(t, 1, domain.PayCOD, "")
		_, err := f.svc.Transition(ctx, o.ID, domain.OrderShipped)
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, o.ID, f.user.ID, "")
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})
}

func TestConfirmAfterCancelKeepsOrderCancelled(t *testing.T) {
	f := newFixture(t, 5)
	o := f.place(t, 1, domain.PayOnline, "")
	pay := createPayment(t, f.db, o)
	ctx := context.Background()

	// cancellation that raced the gateway capture
	require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", o.ID).
		Update("status", domain.OrderCancelled).Error)
	require.NoError(t, inventory.Release(f.db, f.product.ID, 1))

	got, err := f.svc.ConfirmPayment(ctx, pay.ID, "pay_late")
	assert.ErrorIs(t, err, order.ErrOrderNotPending)
	require.NotNil(t, got)
	assert.Equal(t, domain.OrderCancelled, got.Status)

	var stored domain.Payment
	require.NoError(t, f.db.First(&stored, pay.ID).Error)
	assert.Equal(t, domain.PaymentSuccess, stored.Status)
	assert.Equal(t, "order no longer pending", stored.FailureReason)

	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 5, inv.StockQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
}

func TestCouponRedeemedOncePerCustomer(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	coupon := &domain.Coupon{
		Code:        "COOL10",
		Type:        domain.CouponPercentage,
		Value:       decimal.NewFromInt(10),
		MaxDiscount: decimal.NewFromInt(150),
		UsageLimit:  5,
		Active:      true,
	}
	require.NoError(t, f.db.Create(coupon).Error)

	o := f.place(t, 2, domain.PayOnline, " cool10 ")
	assert.Equal(t, "150.00", o.DiscountAmount.StringFixed(2))
	assert.Equal(t, "2210.00", o.Total.StringFixed(2))
	assert.Equal(t, "COOL10", o.CouponCode)

	_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderInput{
		UserID:     f.user.ID,
		Items:      []order.ItemInput{{ProductID: f.product.ID, Quantity: 1}},
		AddressID:  f.addr.ID,
		CouponCode: "COOL10",
	})
	assert.ErrorIs(t, err, checkout.ErrCouponAlreadyUsed)

	var usages int64
	require.NoError(t, f.db.Model(&domain.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&usages).Error)
	assert.Equal(t, int64(1), usages)

	// cancelling gives the redemption back
	_, err = f.svc.Cancel(ctx, o.ID, f.user.ID, "")
	require.NoError(t, err)
	var stored domain.Coupon
	require.NoError(t, f.db.First(&stored, coupon.ID).Error)
	assert.Equal(t, 0, stored.UsedCount)

	_, discount, err := f.svc.CheckCoupon(ctx, "COOL10", f.user.ID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "100.00", discount.StringFixed(2))

	_, _, err = f.svc.CheckCoupon(ctx, "NOPE", f.user.ID, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, order.ErrCouponNotFound)
}

func TestCouponUsageLimit(t *testing.T) {
	f := newFixture(t, 10)
	coupon := &domain.Coupon{
		Code:       "FIRST1",
		Type:       domain.CouponFixed,
		Value:      decimal.NewFromInt(50),
		UsageLimit: 1,
		Active:     true,
	}
	require.NoError(t, f.db.Create(coupon).Error)
	f.place(t, 1, domain.PayOnline, "FIRST1")

	other := testutil.CreateUser(t, f.db, "ravi@example.com")
	addr := testutil.CreateAddress(t, f.db, other.ID)
	_, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:     other.ID,
		Items:      []order.ItemInput{{ProductID: f.product.ID, Quantity: 1}},
		AddressID:  addr.ID,
		CouponCode: "FIRST1",
	})
	assert.ErrorIs(t, err, checkout.ErrCouponExhausted)
}

func TestConcurrentOrdersForLastUnit(t *testing.T) {
	f := newFixture(t, 1)
	buyers := []*domain.User{f.user, testutil.CreateUser(t, f.db, "ravi@example.com")}
	addrs := []*domain.Address{f.addr, testutil.CreateAddress(t, f.db, buyers[1].ID)}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), order.PlaceOrderInput{
				UserID:    buyers[i].ID,
				Items:     []order.ItemInput{{ProductID: f.product.ID, Quantity: 1}},
				AddressID: addrs[i].ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, inventory.ErrInsufficientStock), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)

	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 1, inv.ReservedQuantity)
	assert.Equal(t, 1, inv.StockQuantity)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	stale := f.place(t, 2, domain.PayOnline, "")
	cod := f.place(t, 1, domain.PayCOD, "")

	f.clk.Advance(10 * time.Minute)
	fresh := f.place(t, 1, domain.PayOnline, "")

	n, err := f.svc.ExpireStale(ctx, start.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
	assert.Equal(t, "payment window expired", got.CancelReason)

	got, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, got.Status)

	got, err = f.svc.Get(ctx, cod.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)

	inv := testutil.GetInventory(t, f.db, f.product.ID)
	assert.Equal(t, 4, inv.StockQuantity)
	assert.Equal(t, 1, inv.ReservedQuantity)

	n, err = f.svc.ExpireStale(ctx, start.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransition(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	o := f.place(t, 1, domain.PayOnline, "")

	_, err := f.svc.Transition(ctx, o.ID, domain.OrderShipped)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, o.ID, "LOST")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	got, err := f.svc.Transition(ctx, o.ID, domain.OrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)
	assert.Equal(t, 4, testutil.GetInventory(t, f.db, f.product.ID).StockQuantity)

	for _, to := range []string{domain.OrderProcessing, domain.OrderShipped, domain.OrderDelivered} {
		got, err = f.svc.Transition(ctx, o.ID, to)
		require.NoError(t, err)
		assert.Equal(t, to, got.Status)
	}

	_, err = f.svc.Transition(ctx, o.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = f.svc.Transition(ctx, 9999, domain.OrderConfirmed)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{domain.OrderPending, domain.OrderConfirmed, true},
		{domain.OrderPending, domain.OrderShipped, false},
		{domain.OrderConfirmed, domain.OrderShipped, true},
		{domain.OrderProcessing, domain.OrderCancelled, true},
		{domain.OrderShipped, domain.OrderCancelled, false},
		{domain.OrderDelivered, domain.OrderReturned, true},
		{domain.OrderCancelled, domain.OrderPending, false},
		{domain.OrderReturned, domain.OrderDelivered, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, order.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
	assert.Empty(t, order.NextStatuses(domain.OrderCancelled))
}

func TestPreview(t *testing.T) {
	f := newFixture(t, 5)
	cheap := testutil.CreateProduct(t, f.db, "FILTER", "199.50", 20)
	testutil.AddToCart(t, f.db, f.user.ID, cheap.ID, 2)

	q, err := f.svc.Preview(context.Background(), f.user.ID, nil, "")
	require.NoError(t, err)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, "399.00", q.Summary.Subtotal.StringFixed(2))
	assert.Equal(t, "99.00", q.Summary.ShippingCost.StringFixed(2))
	assert.Equal(t, "71.82", q.Summary.TaxAmount.StringFixed(2))
	assert.Equal(t, "569.82", q.Summary.Total.StringFixed(2))
	assert.Zero(t, testutil.GetInventory(t, f.db, cheap.ID).ReservedQuantity)
}
