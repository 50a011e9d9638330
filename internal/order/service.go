package order

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/events"
	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/pkg/clock"
	"github.com/hvacmart/storefront/pkg/common"
	"github.com/hvacmart/storefront/pkg/metrics"
)

const (
	Currency = "INR"

	expireBatch = 200
)

// Settings supplies the runtime business parameters.
type Settings interface {
	CheckoutRules() checkout.Rules
	PendingOrderTTL() time.Duration
}

// StaticSettings is a fixed Settings value.
type StaticSettings struct {
	Rules checkout.Rules
	TTL   time.Duration
}

func (s StaticSettings) CheckoutRules() checkout.Rules  { return s.Rules }
func (s StaticSettings) PendingOrderTTL() time.Duration { return s.TTL }

var DefaultSettings = StaticSettings{Rules: checkout.DefaultRules, TTL: 30 * time.Minute}

type ItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// PlaceOrderInput describes a checkout. Empty Items means "order the cart".
type PlaceOrderInput struct {
	UserID        int64
	Items         []ItemInput
	AddressID     int64
	CouponCode    string
	PaymentMethod string
}

// Quote is a priced cart or item list.
type Quote struct {
	Lines   []checkout.Line  `json:"lines"`
	Summary checkout.Summary `json:"summary"`
}

// Service owns every order state change. Stock is only touched through the
// inventory package inside the same transaction as the status change.
type Service struct {
	db       *gorm.DB
	repo     Repository
	settings Settings
	events   events.Publisher
	clock    clock.Clock
}

func NewService(db *gorm.DB, settings Settings, publisher events.Publisher, clk clock.Clock) *Service {
	if settings == nil {
		settings = DefaultSettings
	}
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Service{
		db:       db,
		repo:     NewGormRepository(db),
		settings: settings,
		events:   publisher,
		clock:    clk,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	return s.repo.GetForUser(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, filter Filter, page, pageSize int) ([]*domain.Order, int64, error) {
	return s.repo.List(ctx, filter, page, pageSize)
}

func (s *Service) Payments(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return s.repo.PaymentsForOrder(ctx, orderID)
}

// Preview prices items (or the user's cart) without reserving anything.
func (s *Service) Preview(ctx context.Context, userID int64, items []ItemInput, couponCode string) (*Quote, error) {
	db := s.db.WithContext(ctx)
	lines, err := s.loadLines(db, userID, items)
	if err != nil {
		return nil, err
	}
	coupon, err := s.resolveCoupon(db, couponCode, userID, checkout.Subtotal(lines))
	if err != nil {
		return nil, err
	}
	summary, err := checkout.Totals(lines, coupon, s.settings.CheckoutRules())
	if err != nil {
		return nil, err
	}
	return &Quote{Lines: lines, Summary: summary}, nil
}

// CheckCoupon validates code for userID at subtotal and returns the discount
// it would give.
func (s *Service) CheckCoupon(ctx context.Context, code string, userID int64, subtotal decimal.Decimal) (*domain.Coupon, decimal.Decimal, error) {
	if checkout.NormalizeCode(code) == "" {
		return nil, decimal.Zero, ErrCouponNotFound
	}
	coupon, err := s.resolveCoupon(s.db.WithContext(ctx), code, userID, subtotal)
	if err != nil {
		return nil, decimal.Zero, err
	}
	rules := s.settings.CheckoutRules()
	shipping := decimal.Zero
	if subtotal.LessThan(rules.FreeShippingThreshold) {
		shipping = rules.ShippingFee
	}
	discount, err := checkout.Discount(coupon, subtotal, shipping)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return coupon, discount.Round(2), nil
}

// PlaceOrder prices the order, reserves stock and records the coupon
// redemption in one transaction. ONLINE orders stay PENDING until payment;
// COD orders are confirmed immediately.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PayOnline
	}
	if in.PaymentMethod != domain.PayOnline && in.PaymentMethod != domain.PayCOD {
		return nil, ErrInvalidPaymentMethod
	}
	now := s.clock.Now()
	rules := s.settings.CheckoutRules()

	var order domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var addr domain.Address
		err := tx.Where("id = ? AND user_id = ?", in.AddressID, in.UserID).First(&addr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAddressNotFound
		}
		if err != nil {
			return err
		}

		lines, err := s.loadLines(tx, in.UserID, in.Items)
		if err != nil {
			return err
		}
		coupon, err := s.resolveCoupon(tx, in.CouponCode, in.UserID, checkout.Subtotal(lines))
		if err != nil {
			return err
		}
		summary, err := checkout.Totals(lines, coupon, rules)
		if err != nil {
			return err
		}

		order = domain.Order{
			OrderNo:        "HV" + common.UUIDBase36(),
			UserID:         in.UserID,
			Status:         domain.OrderPending,
			PaymentMethod:  in.PaymentMethod,
			Subtotal:       summary.Subtotal,
			ShippingCost:   summary.ShippingCost,
			TaxAmount:      summary.TaxAmount,
			DiscountAmount: summary.DiscountAmount,
			Total:          summary.Total,
			CouponCode:     summary.CouponCode,
			ShipName:       addr.Name,
			ShipPhone:      addr.Phone,
			ShipLine1:      addr.Line1,
			ShipLine2:      addr.Line2,
			ShipCity:       addr.City,
			ShipState:      addr.State,
			ShipPincode:    addr.Pincode,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
		}
		if in.PaymentMethod == domain.PayOnline {
			expires := now.Add(s.settings.PendingOrderTTL())
			order.ExpiresAt = &expires
		}
		for _, l := range lines {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: l.ProductID,
				Name:      l.Name,
				Sku:       l.Sku,
				UnitPrice: l.UnitPrice,
				Quantity:  l.Quantity,
				LineTotal: l.Total().Round(2),
			})
		}
		if err := tx.Create(&order).Error; err != nil {
			return errors.Wrap(err, "create order")
		}

		for _, l := range lines {
			if err := inventory.Reserve(tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		if coupon != nil {
			if err := redeemCoupon(tx, coupon.ID, in.UserID, order.ID); err != nil {
				return err
			}
		}

		if in.PaymentMethod == domain.PayCOD {
			if err := s.confirmTx(tx, &order, now); err != nil {
				return err
			}
			pay := domain.Payment{
				OrderID:  order.ID,
				UserID:   order.UserID,
				Method:   domain.PayCOD,
				Amount:   order.Total,
				Currency: Currency,
				Status:   domain.PaymentPending,
				Receipt:  order.OrderNo,
			}
			if err := tx.Create(&pay).Error; err != nil {
				return errors.Wrap(err, "create cod payment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Incr(metrics.OrdersPlaced)
	zap.L().Info("order placed",
		zap.String("namespace", "order"),
		zap.String("order_no", order.OrderNo),
		zap.Int64("user_id", order.UserID),
		zap.String("payment_method", order.PaymentMethod),
		zap.String("total", order.Total.StringFixed(2)))
	s.publish(events.TopicOrderPlaced, &order, 0, "")
	if order.Status == domain.OrderConfirmed {
		metrics.Incr(metrics.OrdersConfirmed)
		s.publish(events.TopicOrderConfirmed, &order, 0, "")
	}
	return &order, nil
}

// ConfirmPayment marks a pending payment successful and confirms its order,
// converting the reservation into sold stock. Replaying a confirmation is a
// no-op that returns the order. When the order stopped being pending (it was
// cancelled or expired) the payment is still recorded as captured and
// ErrOrderNotPending is returned.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID int64, gatewayPaymentID string) (*domain.Order, error) {
	now := s.clock.Now()
	var (
		order  domain.Order
		replay bool
		stale  bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pay domain.Payment
		err := tx.First(&pay, paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		res := tx.Model(&domain.Payment{}).
			Where("id = ? AND status = ?", pay.ID, domain.PaymentPending).
			Updates(map[string]interface{}{
				"status":             domain.PaymentSuccess,
				"gateway_payment_id": gatewayPaymentID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var cur domain.Payment
			if err := tx.First(&cur, pay.ID).Error; err != nil {
				return err
			}
			if cur.Status != domain.PaymentSuccess {
				return ErrPaymentNotPending
			}
			replay = true
			return tx.Preload("Items").First(&order, pay.OrderID).Error
		}

		if err := tx.Preload("Items").First(&order, pay.OrderID).Error; err != nil {
			return err
		}
		if order.Status != domain.OrderPending {
			stale = true
			return tx.Model(&domain.Payment{}).Where("id = ?", pay.ID).
				Update("failure_reason", "order no longer pending").Error
		}
		return s.confirmTx(tx, &order, now)
	})
	if err != nil {
		return nil, err
	}
	if replay {
		zap.L().Debug("payment already confirmed",
			zap.String("namespace", "order"),
			zap.Int64("payment_id", paymentID))
		return &order, nil
	}
	metrics.Incr(metrics.PaymentsSuccess)
	if stale {
		zap.L().Warn("payment captured for order that is no longer pending",
			zap.String("namespace", "order"),
			zap.Int64("payment_id", paymentID),
			zap.String("order_no", order.OrderNo),
			zap.String("status", order.Status))
		return &order, ErrOrderNotPending
	}

	metrics.Incr(metrics.OrdersConfirmed)
	zap.L().Info("order confirmed",
		zap.String("namespace", "order"),
		zap.String("order_no", order.OrderNo),
		zap.Int64("payment_id", paymentID))
	s.publish(events.TopicOrderConfirmed, &order, paymentID, "")
	return &order, nil
}

// FailPayment marks a pending payment failed. The order keeps its
// reservation so the customer can retry until the order expires.
func (s *Service) FailPayment(ctx context.Context, paymentID int64, reason string) error {
	var pay domain.Payment
	err := s.db.WithContext(ctx).First(&pay, paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND status = ?", paymentID, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":         domain.PaymentFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPaymentNotPending
	}

	metrics.Incr(metrics.PaymentsFailed)
	zap.L().Warn("payment failed",
		zap.String("namespace", "order"),
		zap.Int64("payment_id", paymentID),
		zap.Int64("order_id", pay.OrderID),
		zap.String("reason", reason))
	s.events.Publish(events.OrderEvent{
		Topic:     events.TopicPaymentFailed,
		OrderID:   pay.OrderID,
		UserID:    pay.UserID,
		PaymentID: pay.ID,
		Reason:    reason,
	})
	return nil
}

// Cancel cancels an order. userID 0 skips the ownership check (back-office).
func (s *Service) Cancel(ctx context.Context, orderID, userID int64, reason string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Items").Where("id = ?", orderID)
		if userID > 0 {
			query = query.Where("user_id = ?", userID)
		}
		err := query.First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return s.cancelTx(tx, &order, reason)
	})
	if err != nil {
		return nil, err
	}
	s.afterCancel(&order)
	return &order, nil
}

// ExpireStale cancels unpaid ONLINE orders whose payment window closed
// before now and returns how many were cancelled.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.GetExpired(ctx, now, expireBatch)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, o := range expired {
		var order domain.Order
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Items").First(&order, o.ID).Error; err != nil {
				return err
			}
			if order.Status != domain.OrderPending {
				return ErrOrderNotPending
			}
			return s.cancelTx(tx, &order, "payment window expired")
		})
		if errors.Is(err, ErrOrderNotPending) {
			continue
		}
		if err != nil {
			zap.L().Error("expire order failed",
				zap.String("namespace", "order"),
				zap.Int64("order_id", o.ID),
				zap.Error(err))
			continue
		}
		count++
		s.afterCancel(&order)
	}
	return count, nil
}

// Transition moves an order to status to through the transition table.
// Cancellation goes through Cancel so stock is returned.
func (s *Service) Transition(ctx context.Context, orderID int64, to string) (*domain.Order, error) {
	if !ValidStatus(to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}
	if to == domain.OrderCancelled {
		return s.Cancel(ctx, orderID, 0, "cancelled by store")
	}

	now := s.clock.Now()
	var (
		order domain.Order
		from  string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items").First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(from, to) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
		}
		if from == domain.OrderPending && to == domain.OrderConfirmed {
			return s.confirmTx(tx, &order, now)
		}
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(ErrInvalidTransition, "order %d changed concurrently", order.ID)
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order status changed",
		zap.String("namespace", "order"),
		zap.String("order_no", order.OrderNo),
		zap.String("from", from),
		zap.String("to", to))
	s.publish(events.TopicOrderStatus, &order, 0, "")
	if to == domain.OrderConfirmed {
		metrics.Incr(metrics.OrdersConfirmed)
		s.publish(events.TopicOrderConfirmed, &order, 0, "")
	}
	return &order, nil
}

// confirmTx moves a PENDING order to CONFIRMED, commits its reserved stock
// and removes the ordered products from the customer's cart.
func (s *Service) confirmTx(tx *gorm.DB, order *domain.Order, now time.Time) error {
	res := tx.Model(&domain.Order{}).
		Where("id = ? AND status = ?", order.ID, domain.OrderPending).
		Updates(map[string]interface{}{
			"status":       domain.OrderConfirmed,
			"confirmed_at": now,
			"expires_at":   nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotPending
	}
	productIDs := make([]int64, 0, len(order.Items))
	for _, it := range order.Items {
		if err := inventory.Commit(tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
		productIDs = append(productIDs, it.ProductID)
	}
	if len(productIDs) > 0 {
		if err := tx.Where("user_id = ? AND product_id IN ?", order.UserID, productIDs).
			Delete(&domain.CartItem{}).Error; err != nil {
			return errors.Wrap(err, "clear cart")
		}
	}
	order.Status = domain.OrderConfirmed
	order.ConfirmedAt = &now
	order.ExpiresAt = nil
	return nil
}

// cancelTx cancels order and gives its stock back: a PENDING order releases
// its reservation, a confirmed one restocks the sold units.
func (s *Service) cancelTx(tx *gorm.DB, order *domain.Order, reason string) error {
	from := order.Status
	if !CanTransition(from, domain.OrderCancelled) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, domain.OrderCancelled)
	}
	res := tx.Model(&domain.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]interface{}{
			"status":        domain.OrderCancelled,
			"cancel_reason": reason,
			"expires_at":    nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrInvalidTransition, "order %d changed concurrently", order.ID)
	}

	for _, it := range order.Items {
		var err error
		if from == domain.OrderPending {
			err = inventory.Release(tx, it.ProductID, it.Quantity)
		} else {
			err = inventory.Restock(tx, it.ProductID, it.Quantity)
		}
		if err != nil {
			return err
		}
	}

	usage := tx.Where("order_id = ?", order.ID).Delete(&domain.CouponUsage{})
	if usage.Error != nil {
		return usage.Error
	}
	if usage.RowsAffected > 0 && order.CouponID != nil {
		if err := tx.Model(&domain.Coupon{}).
			Where("id = ? AND used_count > 0", *order.CouponID).
			Update("used_count", gorm.Expr("used_count - 1")).Error; err != nil {
			return err
		}
	}

	if err := tx.Model(&domain.Payment{}).
		Where("order_id = ? AND status = ?", order.ID, domain.PaymentPending).
		Updates(map[string]interface{}{
			"status":         domain.PaymentFailed,
			"failure_reason": "order cancelled",
		}).Error; err != nil {
		return err
	}

	order.Status = domain.OrderCancelled
	order.CancelReason = reason
	order.ExpiresAt = nil
	return nil
}

func (s *Service) afterCancel(order *domain.Order) {
	metrics.Incr(metrics.OrdersCancelled)
	zap.L().Info("order cancelled",
		zap.String("namespace", "order"),
		zap.String("order_no", order.OrderNo),
		zap.String("reason", order.CancelReason))
	s.publish(events.TopicOrderCancelled, order, 0, order.CancelReason)
}

func (s *Service) publish(topic string, order *domain.Order, paymentID int64, reason string) {
	s.events.Publish(events.OrderEvent{
		Topic:     topic,
		OrderID:   order.ID,
		UserID:    order.UserID,
		PaymentID: paymentID,
		Status:    order.Status,
		Reason:    reason,
	})
}

// loadLines prices items against the catalog. Duplicate products are merged.
func (s *Service) loadLines(db *gorm.DB, userID int64, items []ItemInput) ([]checkout.Line, error) {
	if len(items) == 0 {
		var cart []domain.CartItem
		if err := db.Where("user_id = ?", userID).Order("id ASC").Find(&cart).Error; err != nil {
			return nil, err
		}
		for _, ci := range cart {
			items = append(items, ItemInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, checkout.ErrEmptyCart
	}

	qty := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, checkout.ErrInvalidQuantity
		}
		if _, ok := qty[it.ProductID]; !ok {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	var products []domain.Product
	if err := db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]checkout.Line, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || p.Status != domain.ProductActive {
			return nil, errors.Wrapf(ErrProductUnavailable, "product %d", id)
		}
		lines = append(lines, checkout.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Sku:       p.Sku,
			UnitPrice: p.Price,
			Quantity:  qty[id],
		})
	}
	return lines, nil
}

// resolveCoupon loads and validates code for userID. An empty code yields nil.
func (s *Service) resolveCoupon(db *gorm.DB, code string, userID int64, subtotal decimal.Decimal) (*domain.Coupon, error) {
	code = checkout.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	var c domain.Coupon
	err := db.Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := checkout.ValidateCoupon(&c, subtotal, s.clock.Now()); err != nil {
		return nil, err
	}
	var used int64
	if err := db.Model(&domain.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", c.ID, userID).
		Count(&used).Error; err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, checkout.ErrCouponAlreadyUsed
	}
	return &c, nil
}

// redeemCoupon records one use of couponID by userID. The unique
// (coupon_id, user_id) key rejects a second redemption and the conditional
// increment rejects redemptions past the usage limit.
func redeemCoupon(tx *gorm.DB, couponID, userID, orderID int64) error {
	err := tx.Create(&domain.CouponUsage{CouponID: couponID, UserID: userID, OrderID: orderID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return checkout.ErrCouponAlreadyUsed
	}
	if err != nil {
		return errors.Wrap(err, "record coupon usage")
	}
	res := tx.Model(&domain.Coupon{}).
		Where("id = ? AND (usage_limit = 0 OR used_count < usage_limit)", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return checkout.ErrCouponExhausted
	}
	return nil
}
