package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/config"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/testutil"
)

type sent struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sent
}

func (m *fakeMailer) Send(to, subject, html string) error {
	m.sent = append(m.sent, sent{to, subject, html})
	return nil
}

func TestFormatINR(t *testing.T) {
	out := FormatINR(decimal.RequireFromString("2360"))
	assert.Contains(t, out, "2,360.00")
	assert.Contains(t, out, "₹")
}

func TestNotifierSendsOrderMails(t *testing.T) {
	db := testutil.NewDB(t)
	orders := order.NewService(db, order.DefaultSettings, &events.Recorder{}, nil)
	user := testutil.CreateUser(t, db, "asha@example.com")
	addr := testutil.CreateAddress(t, db, user.ID)
	p := testutil.CreateProduct(t, db, "AC-15T", "1000", 5)
	o, err := orders.PlaceOrder(context.Background(), order.PlaceOrderInput{
		UserID:        user.ID,
		Items:         []order.ItemInput{{ProductID: p.ID, Quantity: 2}},
		AddressID:     addr.ID,
		PaymentMethod: domain.PayCOD,
	})
	require.NoError(t, err)

	m := &fakeMailer{}
	n := NewNotifier(db, m, "HVAC Mart")

	require.NoError(t, n.Handle(context.Background(), events.OrderEvent{Topic: events.TopicOrderConfirmed, OrderID: o.ID}))
	require.NoError(t, n.Handle(context.Background(), events.OrderEvent{Topic: events.TopicOrderCancelled, OrderID: o.ID, Reason: "out of stock"}))
	require.NoError(t, n.Handle(context.Background(), events.OrderEvent{Topic: events.TopicOrderPlaced, OrderID: o.ID}))

	require.Len(t, m.sent, 2)
	assert.Equal(t, "asha@example.com", m.sent[0].to)
	assert.Equal(t, "Order confirmed - "+o.OrderNo, m.sent[0].subject)
	assert.Contains(t, m.sent[0].body, o.OrderNo)
	assert.Contains(t, m.sent[0].body, "2,360.00")
	assert.Contains(t, m.sent[0].body, "Product AC-15T")
	assert.Contains(t, m.sent[1].body, "out of stock")
}

func TestSMTPMailerDisabledWithoutHost(t *testing.T) {
	assert.Nil(t, NewSMTPMailer(config.SmtpConfig{}))
	assert.NotNil(t, NewSMTPMailer(config.SmtpConfig{Host: "smtp.example.com", From: "orders@example.com"}))
}
