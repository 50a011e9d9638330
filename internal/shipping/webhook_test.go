package shipping_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/shipping"
	"github.com/hvacmart/storefront/internal/testutil"
	"github.com/hvacmart/storefront/pkg/common"
)

const hookSecret = "whsec"

func TestMapStatus(t *testing.T) {
	cases := map[string]string{
		"IN TRANSIT":       shipping.StatusInTransit,
		"in_transit":       shipping.StatusInTransit,
		"Out For Delivery": shipping.StatusOutForDelivery,
		"  delivered ":     shipping.StatusDelivered,
		"PICKED UP":        shipping.StatusPickedUp,
		"RTO INITIATED":    shipping.StatusRTO,
		"Canceled":         shipping.StatusCancelled,
		"teleported":       shipping.StatusUnknown,
		"":                 shipping.StatusUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, shipping.MapStatus(raw), raw)
	}
}

func TestDecodeWebhook(t *testing.T) {
	p, err := shipping.DecodeWebhook([]byte(`{"awb":59629792084,"courier_name":"Delhivery Surface","current_status":"IN TRANSIT","current_timestamp":"23 05 2023 11:43:52","order_id":"HV1","scans":[{"date":"2023-05-23 09:00:00","activity":"Picked","location":"Pune"},{"date":"2023-05-23 11:43:52","activity":"In transit","location":"Mumbai Hub"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "59629792084", p.Awb)
	assert.Equal(t, "IN TRANSIT", p.RawStatus())
	assert.Equal(t, "Mumbai Hub", p.Location())
	require.NotNil(t, p.EventTime())
	assert.Equal(t, 2023, p.EventTime().Year())

	p, err = shipping.DecodeWebhook([]byte(`{"awb":"AWB-7","shipment_status":"DELIVERED"}`))
	require.NoError(t, err)
	assert.Equal(t, "AWB-7", p.Awb)
	assert.Equal(t, "DELIVERED", p.RawStatus())
	assert.Nil(t, p.EventTime())

	_, err = shipping.DecodeWebhook([]byte(`{"current_status":"DELIVERED"}`))
	assert.ErrorIs(t, err, shipping.ErrMissingAwb)

	_, err = shipping.DecodeWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, shipping.ErrMalformedPayload)
}

type trackerFixture struct {
	db      *gorm.DB
	orders  *order.Service
	tracker *shipping.Tracker
	order   *domain.Order
}

func newTrackerFixture(t *testing.T, secret string) *trackerFixture {
	t.Helper()
	db := testutil.NewDB(t)
	orders := order.NewService(db, order.DefaultSettings, &events.Recorder{}, nil)
	user := testutil.CreateUser(t, db, "asha@example.com")
	addr := testutil.CreateAddress(t, db, user.ID)
	p := testutil.CreateProduct(t, db, "AC-15T", "1000", 5)
	o, err := orders.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:        user.ID,
		Items:         []order.ItemInput{{ProductID: p.ID, Quantity: 1}},
		AddressID:     addr.ID,
		PaymentMethod: domain.PayCOD,
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.ShipmentTracking{
		OrderID: o.ID, AwbCode: "59629792084", Status: shipping.StatusCreated, Courier: "Delhivery",
	}).Error)
	return &trackerFixture{
		db:      db,
		orders:  orders,
		tracker: shipping.NewTracker(db, orders, secret, nil),
		order:   o,
	}
}

func push(t *testing.T, tr *shipping.Tracker, body string) (*domain.ShipmentTracking, error) {
	t.Helper()
	return tr.HandleWebhook(context.Background(), []byte(body), common.HmacSha256Hex(hookSecret, []byte(body)))
}

func TestTrackerAdvancesOrder(t *testing.T) {
	f := newTrackerFixture(t, hookSecret)
	ctx := context.Background()

	tr, err := push(t, f.tracker, `{"awb":59629792084,"current_status":"IN TRANSIT","scans":[{"location":"Mumbai Hub"}]}`)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusInTransit, tr.Status)
	assert.Equal(t, "Mumbai Hub", tr.Location)
	assert.Equal(t, "Delhivery", tr.Courier, "courier kept when the push omits it")

	o, err := f.orders.Get(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, o.Status)

	_, err = push(t, f.tracker, `{"awb":"59629792084","current_status":"DELIVERED"}`)
	require.NoError(t, err)
	o, err = f.orders.Get(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, o.Status)

	// a late in-transit push cannot move a delivered order back
	tr, err = push(t, f.tracker, `{"awb":"59629792084","current_status":"IN TRANSIT"}`)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusInTransit, tr.Status)
	o, err = f.orders.Get(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, o.Status)

	var rows int64
	require.NoError(t, f.db.Model(&domain.ShipmentTracking{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	var logged int64
	require.NoError(t, f.db.Model(&domain.WebhookEvent{}).Where("verified = ?", true).Count(&logged).Error)
	assert.Equal(t, int64(3), logged)
}

func TestTrackerDeliveredJumpsThroughShipped(t *testing.T) {
	f := newTrackerFixture(t, hookSecret)
	_, err := push(t, f.tracker, `{"awb":"59629792084","current_status":"DELIVERED"}`)
	require.NoError(t, err)
	o, err := f.orders.Get(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, o.Status)
}

func TestTrackerRejectsBadSignature(t *testing.T) {
	f := newTrackerFixture(t, hookSecret)
	body := []byte(`{"awb":"59629792084","current_status":"DELIVERED"}`)

	_, err := f.tracker.HandleWebhook(context.Background(), body, common.HmacSha256Hex("other", body))
	assert.ErrorIs(t, err, shipping.ErrBadSignature)
	_, err = f.tracker.HandleWebhook(context.Background(), body, "")
	assert.ErrorIs(t, err, shipping.ErrBadSignature)

	var tr domain.ShipmentTracking
	require.NoError(t, f.db.Where("awb_code = ?", "59629792084").First(&tr).Error)
	assert.Equal(t, shipping.StatusCreated, tr.Status)

	var rejected int64
	require.NoError(t, f.db.Model(&domain.WebhookEvent{}).Where("verified = ?", false).Count(&rejected).Error)
	assert.Equal(t, int64(2), rejected)
}

func TestTrackerWithoutSecret(t *testing.T) {
	f := newTrackerFixture(t, "")
	body := fmt.Sprintf(`{"awb":"NEW-AWB-1","current_status":"PICKED UP","courier_name":"Bluedart","order_id":%q}`, f.order.OrderNo)

	tr, err := f.tracker.HandleWebhook(context.Background(), []byte(body), "")
	require.NoError(t, err)
	assert.Equal(t, f.order.ID, tr.OrderID)
	assert.Equal(t, "Bluedart", tr.Courier)
	assert.Equal(t, shipping.StatusPickedUp, tr.Status)

	rows, err := f.tracker.ForOrder(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = f.tracker.HandleWebhook(context.Background(), []byte(`{"awb":"STRAY","current_status":"DELIVERED","order_id":"HVNOPE"}`), "")
	assert.ErrorIs(t, err, shipping.ErrUnknownShipment)
}

func TestTrackerUnknownStatusKeepsLastKnown(t *testing.T) {
	f := newTrackerFixture(t, hookSecret)
	_, err := push(t, f.tracker, `{"awb":"59629792084","current_status":"IN TRANSIT"}`)
	require.NoError(t, err)
	tr, err := push(t, f.tracker, `{"awb":"59629792084","current_status":"CUSTOMS HOLD"}`)
	require.NoError(t, err)
	assert.Equal(t, shipping.StatusInTransit, tr.Status)
	assert.Equal(t, "CUSTOMS HOLD", tr.RawStatus)
}
