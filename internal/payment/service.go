package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment/clients"
)

var (
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
	ErrOrderNotPayable    = errors.New("order is not awaiting online payment")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

type Config struct {
	KeyID     string
	KeySecret string
	Currency  string
}

// Checkout is what the storefront needs to open the gateway's payment form.
type Checkout struct {
	PaymentID      int64           `json:"payment_id"`
	OrderID        int64           `json:"order_id"`
	OrderNo        string          `json:"order_no"`
	GatewayOrderID string          `json:"gateway_order_id"`
	KeyID          string          `json:"key_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountPaise    int64           `json:"amount_paise"`
	Currency       string          `json:"currency"`
}

type VerifyInput struct {
	GatewayOrderID   string `json:"razorpay_order_id" form:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id" validate:"required"`
	Signature        string `json:"razorpay_signature" form:"razorpay_signature" validate:"required"`
}

type Service struct {
	db      *gorm.DB
	gateway clients.Gateway
	orders  *order.Service
	cfg     Config
}

func NewService(db *gorm.DB, gateway clients.Gateway, orders *order.Service, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = order.Currency
	}
	return &Service{db: db, gateway: gateway, orders: orders, cfg: cfg}
}

// ToPaise converts a rupee amount to the gateway's minor units.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreatePayment opens a gateway order for a pending ONLINE order of userID.
// A pending attempt that already has a gateway order is reused.
func (s *Service) CreatePayment(ctx context.Context, orderID, userID int64) (*Checkout, error) {
	o, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod != domain.PayOnline || o.Status != domain.OrderPending {
		return nil, ErrOrderNotPayable
	}

	var existing domain.Payment
	err = s.db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND gateway_order_id IS NOT NULL", o.ID, domain.PaymentPending).
		Order("id DESC").
		First(&existing).Error
	if err == nil {
		return s.checkout(o, &existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if s.gateway == nil {
		return nil, errors.Wrap(ErrGatewayUnavailable, "gateway not configured")
	}
	receipt := uuid.NewString()
	gw, err := s.gateway.CreateOrder(ctx, ToPaise(o.Total), s.cfg.Currency, receipt)
	if err != nil {
		zap.L().Error("create gateway order failed",
			zap.String("namespace", "payment"),
			zap.String("order_no", o.OrderNo),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	pay := &domain.Payment{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Method:         domain.PayOnline,
		Amount:         o.Total,
		Currency:       s.cfg.Currency,
		Status:         domain.PaymentPending,
		GatewayOrderID: &gw.ID,
		Receipt:        receipt,
	}
	if err := s.db.WithContext(ctx).Create(pay).Error; err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	zap.L().Info("payment created",
		zap.String("namespace", "payment"),
		zap.String("order_no", o.OrderNo),
		zap.String("gateway_order_id", gw.ID))
	return s.checkout(o, pay), nil
}

// Verify checks the checkout signature of a gateway order and confirms or
// fails the payment. userID 0 skips the ownership check (gateway callback).
func (s *Service) Verify(ctx context.Context, userID int64, in VerifyInput) (*domain.Order, error) {
	var pay domain.Payment
	err := s.db.WithContext(ctx).Where("gateway_order_id = ?", in.GatewayOrderID).First(&pay).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, order.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID > 0 && pay.UserID != userID {
		return nil, order.ErrPaymentNotFound
	}

	if !VerifySignature(s.cfg.KeySecret, in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		zap.L().Warn("payment signature mismatch",
			zap.String("namespace", "payment"),
			zap.Int64("payment_id", pay.ID),
			zap.String("gateway_order_id", in.GatewayOrderID))
		err := s.orders.FailPayment(ctx, pay.ID, "signature mismatch")
		if err != nil && !errors.Is(err, order.ErrPaymentNotPending) {
			zap.L().Error("mark payment failed",
				zap.String("namespace", "payment"),
				zap.Int64("payment_id", pay.ID),
				zap.Error(err))
		}
		return nil, ErrSignatureMismatch
	}
	return s.orders.ConfirmPayment(ctx, pay.ID, in.GatewayPaymentID)
}

func (s *Service) checkout(o *domain.Order, p *domain.Payment) *Checkout {
	c := &Checkout{
		PaymentID:   p.ID,
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		KeyID:       s.cfg.KeyID,
		Amount:      p.Amount,
		AmountPaise: ToPaise(p.Amount),
		Currency:    p.Currency,
	}
	if p.GatewayOrderID != nil {
		c.GatewayOrderID = *p.GatewayOrderID
	}
	return c
}
