package shipping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/shipping"
	"github.com/hvacmart/storefront/internal/testutil"
)

func TestDispatcherBooksOnce(t *testing.T) {
	db := testutil.NewDB(t)
	orders := order.NewService(db, order.DefaultSettings, &events.Recorder{}, nil)
	user := testutil.CreateUser(t, db, "asha@example.com")
	addr := testutil.CreateAddress(t, db, user.ID)
	p := testutil.CreateProduct(t, db, "AC-15T", "32000", 5)
	o, err := orders.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:        user.ID,
		Items:         []order.ItemInput{{ProductID: p.ID, Quantity: 1}},
		AddressID:     addr.ID,
		PaymentMethod: domain.PayCOD,
	})
	require.NoError(t, err)

	var calls int
	var got shipping.ShipmentRequest
	provider := shipping.ProviderFunc(func(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
		calls++
		got = req
		return &shipping.ShipmentResult{ShipmentID: "16104408", AwbCode: "19041424751540", Courier: "Delhivery"}, nil
	})
	d := shipping.NewDispatcher(db, provider, "Warehouse")

	require.NoError(t, d.Dispatch(context.Background(), o.ID))
	require.NoError(t, d.Dispatch(context.Background(), o.ID))
	assert.Equal(t, 1, calls)

	assert.Equal(t, o.OrderNo, got.OrderNo)
	assert.Equal(t, "Warehouse", got.PickupLocation)
	assert.True(t, got.Cod)
	assert.Equal(t, "asha@example.com", got.Email)
	assert.Equal(t, "411001", got.Pincode)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "AC-15T", got.Items[0].Sku)

	var tr domain.ShipmentTracking
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&tr).Error)
	assert.Equal(t, "19041424751540", tr.AwbCode)
	assert.Equal(t, shipping.StatusCreated, tr.Status)
}

func TestDispatcherFailureIsNotFatal(t *testing.T) {
	db := testutil.NewDB(t)
	orders := order.NewService(db, order.DefaultSettings, &events.Recorder{}, nil)
	user := testutil.CreateUser(t, db, "asha@example.com")
	addr := testutil.CreateAddress(t, db, user.ID)
	p := testutil.CreateProduct(t, db, "AC-15T", "32000", 5)
	o, err := orders.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:        user.ID,
		Items:         []order.ItemInput{{ProductID: p.ID, Quantity: 1}},
		AddressID:     addr.ID,
		PaymentMethod: domain.PayCOD,
	})
	require.NoError(t, err)

	d := shipping.NewDispatcher(db, shipping.ProviderFunc(func(ctx context.Context, req shipping.ShipmentRequest) (*shipping.ShipmentResult, error) {
		return nil, errors.New("courier api down")
	}), "Warehouse")
	assert.Error(t, d.Dispatch(context.Background(), o.ID))

	got, err := orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, got.Status)

	var count int64
	require.NoError(t, db.Model(&domain.ShipmentTracking{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, shipping.NewDispatcher(db, nil, "").Dispatch(context.Background(), o.ID), shipping.ErrNoProvider)
}
