package shipping

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/pkg/metrics"
)

// ErrNoProvider is returned by Dispatch when no courier account is
// configured.
var ErrNoProvider = errors.New("no shipment provider configured")

// default carton for a split AC indoor + outdoor unit pair
const (
	packageLength  = 100
	packageBreadth = 45
	packageHeight  = 40
	packageWeight  = 42
)

// Dispatcher books a shipment for every confirmed order. Booking is best
// effort: failures are logged and counted, never retried, and never undo
// the confirmation.
type Dispatcher struct {
	db       *gorm.DB
	provider Provider
	pickup   string
}

func NewDispatcher(db *gorm.DB, provider Provider, pickup string) *Dispatcher {
	return &Dispatcher{db: db, provider: provider, pickup: pickup}
}

// Subscribe hooks the dispatcher to order confirmations.
func (d *Dispatcher) Subscribe(bus *events.Bus) error {
	return bus.Subscribe(events.TopicOrderConfirmed, func(evt events.OrderEvent) {
		_ = d.Dispatch(context.Background(), evt.OrderID)
	})
}

// Dispatch books the shipment of orderID unless one is already tracked.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID int64) error {
	if d.provider == nil {
		zap.L().Debug("no shipment provider configured",
			zap.String("namespace", "shipping"),
			zap.Int64("order_id", orderID))
		return ErrNoProvider
	}

	var o domain.Order
	if err := d.db.WithContext(ctx).Preload("Items").First(&o, orderID).Error; err != nil {
		zap.L().Error("load order for shipment",
			zap.String("namespace", "shipping"),
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return err
	}

	var existing domain.ShipmentTracking
	err := d.db.WithContext(ctx).Where("order_id = ?", o.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// the courier accepts a booking without the customer email
	var user domain.User
	if err := d.db.WithContext(ctx).Select("id", "email").First(&user, o.UserID).Error; err != nil {
		zap.L().Warn("load customer email for shipment",
			zap.String("namespace", "shipping"),
			zap.String("order_no", o.OrderNo),
			zap.Int64("user_id", o.UserID),
			zap.Error(err))
	}

	req := ShipmentRequest{
		OrderNo:        o.OrderNo,
		OrderDate:      o.CreatedAt,
		PickupLocation: d.pickup,
		Name:           o.ShipName,
		Phone:          o.ShipPhone,
		Email:          user.Email,
		Line1:          o.ShipLine1,
		Line2:          o.ShipLine2,
		City:           o.ShipCity,
		State:          o.ShipState,
		Pincode:        o.ShipPincode,
		Cod:            o.PaymentMethod == domain.PayCOD,
		SubTotal:       o.Total,
		Length:         packageLength,
		Breadth:        packageBreadth,
		Height:         packageHeight,
		Weight:         packageWeight,
	}
	for _, it := range o.Items {
		req.Items = append(req.Items, ShipmentItem{
			Name:         it.Name,
			Sku:          it.Sku,
			Units:        it.Quantity,
			SellingPrice: it.UnitPrice.Round(2),
		})
	}
	res, err := d.provider.CreateShipment(ctx, req)
	if err != nil {
		metrics.Incr(metrics.ShipmentsFailed)
		zap.L().Error("shipment booking failed",
			zap.String("namespace", "shipping"),
			zap.String("order_no", o.OrderNo),
			zap.Error(err))
		return err
	}

	tracking := domain.ShipmentTracking{
		OrderID:    o.ID,
		ShipmentID: res.ShipmentID,
		AwbCode:    res.AwbCode,
		Courier:    res.Courier,
		Status:     StatusCreated,
		RawStatus:  StatusCreated,
	}
	if err := d.db.WithContext(ctx).Create(&tracking).Error; err != nil {
		zap.L().Error("save shipment tracking",
			zap.String("namespace", "shipping"),
			zap.String("order_no", o.OrderNo),
			zap.String("awb", res.AwbCode),
			zap.Error(err))
		return err
	}
	metrics.Incr(metrics.ShipmentsCreated)
	zap.L().Info("shipment booked",
		zap.String("namespace", "shipping"),
		zap.String("order_no", o.OrderNo),
		zap.String("awb", res.AwbCode),
		zap.String("courier", res.Courier))
	return nil
}
