package shipping

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/pkg/clock"
	"github.com/hvacmart/storefront/pkg/common"
	"github.com/hvacmart/storefront/pkg/metrics"
)

// Shipment status values
const (
	StatusCreated         = "CREATED"
	StatusPickupScheduled = "PICKUP_SCHEDULED"
	StatusPickedUp        = "PICKED_UP"
	StatusInTransit       = "IN_TRANSIT"
	StatusOutForDelivery  = "OUT_FOR_DELIVERY"
	StatusDelivered       = "DELIVERED"
	StatusException       = "EXCEPTION"
	StatusRTO             = "RTO"
	StatusCancelled       = "CANCELLED"
	StatusLost            = "LOST"
	StatusUnknown         = "UNKNOWN"
)

const (
	ProviderName    = "shiprocket"
	maxPayloadBytes = 64 << 10
)

var (
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrMissingAwb       = errors.New("webhook payload has no awb")
	ErrUnknownShipment  = errors.New("webhook does not match any order")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// courier status strings, normalized to upper case with single spaces
var statusMap = map[string]string{
	"NEW":                        StatusCreated,
	"AWB ASSIGNED":               StatusCreated,
	"LABEL GENERATED":            StatusCreated,
	"PICKUP SCHEDULED":           StatusPickupScheduled,
	"PICKUP GENERATED":           StatusPickupScheduled,
	"PICKUP QUEUED":              StatusPickupScheduled,
	"OUT FOR PICKUP":             StatusPickupScheduled,
	"PICKUP RESCHEDULED":         StatusPickupScheduled,
	"PICKED UP":                  StatusPickedUp,
	"SHIPPED":                    StatusInTransit,
	"IN TRANSIT":                 StatusInTransit,
	"REACHED AT DESTINATION HUB": StatusInTransit,
	"REACHED DESTINATION HUB":    StatusInTransit,
	"OUT FOR DELIVERY":           StatusOutForDelivery,
	"DELIVERED":                  StatusDelivered,
	"UNDELIVERED":                StatusException,
	"DELAYED":                    StatusException,
	"PICKUP EXCEPTION":           StatusException,
	"RTO INITIATED":              StatusRTO,
	"RTO IN TRANSIT":             StatusRTO,
	"RTO DELIVERED":              StatusRTO,
	"CANCELED":                   StatusCancelled,
	"CANCELLED":                  StatusCancelled,
	"LOST":                       StatusLost,
	"DAMAGED":                    StatusLost,
}

// MapStatus translates a courier status string to a shipment status.
func MapStatus(raw string) string {
	key := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " "))
	if s, ok := statusMap[key]; ok {
		return s
	}
	return StatusUnknown
}

// orderStatusFor returns the order status a shipment status implies, if any.
func orderStatusFor(status string) string {
	switch status {
	case StatusPickedUp, StatusInTransit, StatusOutForDelivery:
		return domain.OrderShipped
	case StatusDelivered:
		return domain.OrderDelivered
	}
	return ""
}

// VerifyWebhook checks the hex HMAC-SHA256 of body in constant time.
func VerifyWebhook(secret string, body []byte, signature string) bool {
	return common.VerifyHmacSha256Hex(secret, body, signature)
}

type Scan struct {
	Date     string `mapstructure:"date"`
	Activity string `mapstructure:"activity"`
	Location string `mapstructure:"location"`
}

// WebhookPayload is the subset of the courier status push we use. Couriers
// send awb as a number or a string, so decoding is weakly typed.
type WebhookPayload struct {
	Awb            string `mapstructure:"awb"`
	CourierName    string `mapstructure:"courier_name"`
	CurrentStatus  string `mapstructure:"current_status"`
	ShipmentStatus string `mapstructure:"shipment_status"`
	Timestamp      string `mapstructure:"current_timestamp"`
	OrderID        string `mapstructure:"order_id"`
	Scans          []Scan `mapstructure:"scans"`
}

func (p *WebhookPayload) RawStatus() string {
	return common.IfEmptyStr(p.CurrentStatus, p.ShipmentStatus)
}

// Location is the location of the latest scan.
func (p *WebhookPayload) Location() string {
	if len(p.Scans) == 0 {
		return ""
	}
	return p.Scans[len(p.Scans)-1].Location
}

// EventTime parses the courier timestamp, "23 05 2023 11:43:52" style or
// any format dateparse understands.
func (p *WebhookPayload) EventTime() *time.Time {
	if p.Timestamp == "" {
		return nil
	}
	if t, err := time.ParseInLocation("02 01 2006 15:04:05", p.Timestamp, time.Local); err == nil {
		return &t
	}
	if t, err := dateparse.ParseLocal(p.Timestamp); err == nil {
		return &t
	}
	return nil
}

func DecodeWebhook(body []byte) (*WebhookPayload, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	var p WebhookPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrMalformedPayload, err.Error())
	}
	p.Awb = strings.TrimSpace(p.Awb)
	if p.Awb == "" {
		return nil, ErrMissingAwb
	}
	return &p, nil
}

// Transitioner moves orders through their status table.
type Transitioner interface {
	Transition(ctx context.Context, orderID int64, to string) (*domain.Order, error)
}

// Tracker ingests courier status webhooks.
type Tracker struct {
	db     *gorm.DB
	orders Transitioner
	secret string
	clock  clock.Clock
}

// NewTracker creates a tracker. An empty secret disables signature checks.
func NewTracker(db *gorm.DB, orders Transitioner, secret string, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Tracker{db: db, orders: orders, secret: secret, clock: clk}
}

// HandleWebhook verifies, decodes and applies one status push. Every
// delivery is recorded in webhook_event, rejected ones included.
func (t *Tracker) HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.ShipmentTracking, error) {
	verified := false
	if t.secret != "" {
		if !VerifyWebhook(t.secret, body, signature) {
			metrics.Incr(metrics.WebhooksRejected)
			t.logEvent(ctx, "rejected", "", false, body)
			zap.L().Warn("shipment webhook signature mismatch", zap.String("namespace", "shipping"))
			return nil, ErrBadSignature
		}
		verified = true
	}

	p, err := DecodeWebhook(body)
	if err != nil {
		t.logEvent(ctx, "malformed", "", verified, body)
		return nil, err
	}
	raw := p.RawStatus()
	status := MapStatus(raw)
	t.logEvent(ctx, raw, p.Awb, verified, body)

	orderID, err := t.resolveOrder(ctx, p)
	if err != nil {
		return nil, err
	}

	tracking := domain.ShipmentTracking{
		OrderID:   orderID,
		AwbCode:   p.Awb,
		Courier:   p.CourierName,
		Status:    status,
		RawStatus: raw,
		Location:  p.Location(),
		EventTime: p.EventTime(),
	}
	columns := []string{"raw_status", "location", "event_time", "updated_at"}
	if status != StatusUnknown {
		columns = append(columns, "status")
	}
	if tracking.Courier != "" {
		columns = append(columns, "courier")
	}
	err = t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "awb_code"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&tracking).Error
	if err != nil {
		return nil, errors.Wrap(err, "upsert shipment tracking")
	}
	if err := t.db.WithContext(ctx).Where("awb_code = ?", p.Awb).First(&tracking).Error; err != nil {
		return nil, err
	}

	zap.L().Info("shipment status updated",
		zap.String("namespace", "shipping"),
		zap.String("awb", p.Awb),
		zap.String("status", status),
		zap.String("raw_status", raw))

	if target := orderStatusFor(status); target != "" {
		t.advance(ctx, tracking.OrderID, target)
	}
	return &tracking, nil
}

// ForOrder lists the tracked shipments of an order.
func (t *Tracker) ForOrder(ctx context.Context, orderID int64) ([]domain.ShipmentTracking, error) {
	var rows []domain.ShipmentTracking
	err := t.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error
	return rows, err
}

// resolveOrder finds the order by a known AWB, then by the order number the
// shipment was booked with.
func (t *Tracker) resolveOrder(ctx context.Context, p *WebhookPayload) (int64, error) {
	var existing domain.ShipmentTracking
	err := t.db.WithContext(ctx).Where("awb_code = ?", p.Awb).First(&existing).Error
	if err == nil {
		return existing.OrderID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if p.OrderID != "" {
		var o domain.Order
		err = t.db.WithContext(ctx).Select("id").Where("order_no = ?", strings.TrimSpace(p.OrderID)).First(&o).Error
		if err == nil {
			return o.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	return 0, ErrUnknownShipment
}

// advance walks the order forward to target. Steps the transition table
// does not allow are skipped.
func (t *Tracker) advance(ctx context.Context, orderID int64, target string) {
	var o domain.Order
	if err := t.db.WithContext(ctx).Select("id", "status").First(&o, orderID).Error; err != nil {
		return
	}
	path := []string{domain.OrderShipped}
	if target == domain.OrderDelivered {
		path = append(path, domain.OrderDelivered)
	}
	current := o.Status
	for _, to := range path {
		if current == to {
			continue
		}
		if !order.CanTransition(current, to) {
			zap.L().Debug("shipment status does not advance order",
				zap.String("namespace", "shipping"),
				zap.Int64("order_id", orderID),
				zap.String("from", current),
				zap.String("to", to))
			return
		}
		if _, err := t.orders.Transition(ctx, orderID, to); err != nil {
			zap.L().Warn("advance order from shipment",
				zap.String("namespace", "shipping"),
				zap.Int64("order_id", orderID),
				zap.String("to", to),
				zap.Error(err))
			return
		}
		current = to
	}
}

func (t *Tracker) logEvent(ctx context.Context, eventType, reference string, verified bool, body []byte) {
	if len(body) > maxPayloadBytes {
		body = body[:maxPayloadBytes]
	}
	evt := domain.WebhookEvent{
		Provider:   ProviderName,
		EventType:  eventType,
		Reference:  reference,
		Verified:   verified,
		Payload:    string(body),
		ReceivedAt: t.clock.Now(),
	}
	if err := t.db.WithContext(ctx).Create(&evt).Error; err != nil {
		zap.L().Warn("record webhook event", zap.String("namespace", "shipping"), zap.Error(err))
	}
}
