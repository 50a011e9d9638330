package notify

import (
	"bytes"
	"context"
	"html/template"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
)

var printer = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders amount as Indian rupees, e.g. "₹ 2,360.00".
func FormatINR(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return printer.Sprint(currency.Symbol(currency.INR.Amount(f)))
}

var funcs = template.FuncMap{"inr": FormatINR}

var confirmedTpl = template.Must(template.New("confirmed").Funcs(funcs).Parse(`
<p>Hi {{.Order.ShipName}},</p>
<p>Your order <b>{{.Order.OrderNo}}</b> is confirmed.</p>
<table>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td>x {{.Quantity}}</td><td>{{inr .LineTotal}}</td></tr>
{{end}}</table>
<p>Subtotal {{inr .Order.Subtotal}}<br>Shipping {{inr .Order.ShippingCost}}<br>GST {{inr .Order.TaxAmount}}
{{if .Order.DiscountAmount.IsPositive}}<br>Discount -{{inr .Order.DiscountAmount}}{{end}}
<br><b>Total {{inr .Order.Total}}</b></p>
<p>Delivering to {{.Order.ShipLine1}}, {{.Order.ShipCity}} {{.Order.ShipPincode}}.</p>
<p>{{.Store}}</p>`))

var cancelledTpl = template.Must(template.New("cancelled").Funcs(funcs).Parse(`
<p>Hi {{.Order.ShipName}},</p>
<p>Your order <b>{{.Order.OrderNo}}</b> of {{inr .Order.Total}} has been cancelled{{if .Reason}}: {{.Reason}}{{end}}.</p>
<p>{{.Store}}</p>`))

var paymentFailedTpl = template.Must(template.New("payment_failed").Funcs(funcs).Parse(`
<p>Hi {{.Order.ShipName}},</p>
<p>We could not verify your payment for order <b>{{.Order.OrderNo}}</b>. Your items stay reserved for a short while, please retry the payment from your orders page.</p>
<p>{{.Store}}</p>`))

type mailData struct {
	Order  *domain.Order
	Reason string
	Store  string
}

// Notifier mails customers about their orders.
type Notifier struct {
	db     *gorm.DB
	mailer Mailer
	store  string
}

func NewNotifier(db *gorm.DB, mailer Mailer, store string) *Notifier {
	return &Notifier{db: db, mailer: mailer, store: store}
}

// Subscribe registers the notifier on bus. Without a mailer it does nothing.
func (n *Notifier) Subscribe(bus *events.Bus) error {
	if n.mailer == nil {
		zap.L().Info("smtp not configured, order mails disabled", zap.String("namespace", "notify"))
		return nil
	}
	for _, topic := range []string{events.TopicOrderConfirmed, events.TopicOrderCancelled, events.TopicPaymentFailed} {
		if err := bus.Subscribe(topic, func(evt events.OrderEvent) {
			_ = n.Handle(context.Background(), evt)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Handle renders and sends the mail for evt.
func (n *Notifier) Handle(ctx context.Context, evt events.OrderEvent) error {
	var (
		tpl     *template.Template
		subject string
	)
	switch evt.Topic {
	case events.TopicOrderConfirmed:
		tpl, subject = confirmedTpl, "Order confirmed"
	case events.TopicOrderCancelled:
		tpl, subject = cancelledTpl, "Order cancelled"
	case events.TopicPaymentFailed:
		tpl, subject = paymentFailedTpl, "Payment not completed"
	default:
		return nil
	}

	var o domain.Order
	if err := n.db.WithContext(ctx).Preload("Items").First(&o, evt.OrderID).Error; err != nil {
		return err
	}
	var user domain.User
	if err := n.db.WithContext(ctx).First(&user, o.UserID).Error; err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, mailData{Order: &o, Reason: evt.Reason, Store: n.store}); err != nil {
		return err
	}
	subject = subject + " - " + o.OrderNo
	if err := n.mailer.Send(user.Email, subject, buf.String()); err != nil {
		zap.L().Warn("order mail failed",
			zap.String("namespace", "notify"),
			zap.String("order_no", o.OrderNo),
			zap.String("topic", evt.Topic),
			zap.Error(err))
		return err
	}
	zap.L().Debug("order mail sent",
		zap.String("namespace", "notify"),
		zap.String("order_no", o.OrderNo),
		zap.String("topic", evt.Topic))
	return nil
}
