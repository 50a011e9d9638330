package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values
const (
	OrderPending    = "PENDING"
	OrderConfirmed  = "CONFIRMED"
	OrderProcessing = "PROCESSING"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
	OrderReturned   = "RETURNED"
)

// Payment status values
const (
	PaymentPending  = "PENDING"
	PaymentSuccess  = "SUCCESS"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

const (
	PayOnline = "ONLINE"
	PayCOD    = "COD"
)

type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo        string          `gorm:"size:32;uniqueIndex" json:"order_no"`
	UserID         int64           `gorm:"index" json:"user_id"`
	Status         string          `gorm:"size:16;index" json:"status"`
	PaymentMethod  string          `gorm:"size:16" json:"payment_method"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2)" json:"shipping_cost"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2)" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`
	CouponID       *int64          `gorm:"index" json:"coupon_id,omitempty"`
	CouponCode     string          `gorm:"size:40" json:"coupon_code,omitempty"`
	ShipName       string          `gorm:"size:120" json:"ship_name"`
	ShipPhone      string          `gorm:"size:20" json:"ship_phone"`
	ShipLine1      string          `gorm:"size:255" json:"ship_line1"`
	ShipLine2      string          `gorm:"size:255" json:"ship_line2"`
	ShipCity       string          `gorm:"size:100" json:"ship_city"`
	ShipState      string          `gorm:"size:100" json:"ship_state"`
	ShipPincode    string          `gorm:"size:10" json:"ship_pincode"`
	CancelReason   string          `gorm:"size:255" json:"cancel_reason,omitempty"`
	ConfirmedAt    *time.Time      `json:"confirmed_at,omitempty"`
	ExpiresAt      *time.Time      `gorm:"index" json:"expires_at,omitempty"` // unpaid ONLINE orders are released after this
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"index" json:"order_id"`
	ProductID int64           `gorm:"index" json:"product_id"`
	Name      string          `gorm:"size:200" json:"name"`
	Sku       string          `gorm:"size:64" json:"sku"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2)" json:"line_total"`
}

func (OrderItem) TableName() string {
	return "order_item"
}

type Payment struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64           `gorm:"index" json:"order_id"`
	UserID           int64           `gorm:"index" json:"user_id"`
	Method           string          `gorm:"size:16" json:"method"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Currency         string          `gorm:"size:8" json:"currency"`
	Status           string          `gorm:"size:16;index" json:"status"`
	GatewayOrderID   *string         `gorm:"size:64;uniqueIndex" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `gorm:"size:64" json:"gateway_payment_id,omitempty"`
	Receipt          string          `gorm:"size:64" json:"receipt"`
	FailureReason    string          `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// Coupon discount types
const (
	CouponPercentage   = "PERCENTAGE"
	CouponFixed        = "FIXED"
	CouponFreeShipping = "FREE_SHIPPING"
)

type Coupon struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string          `gorm:"size:40;uniqueIndex" json:"code"`
	Description   string          `gorm:"size:255" json:"description"`
	Type          string          `gorm:"size:16" json:"type"`
	Value         decimal.Decimal `gorm:"type:numeric(12,2)" json:"value"`
	MaxDiscount   decimal.Decimal `gorm:"type:numeric(12,2)" json:"max_discount"` // zero means uncapped
	MinOrderValue decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_order_value"`
	UsageLimit    int             `json:"usage_limit"` // zero means unlimited
	UsedCount     int             `gorm:"default:0" json:"used_count"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidTo       *time.Time      `json:"valid_to,omitempty"`
	Active        bool            `gorm:"default:true" json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupon"
}

// CouponUsage one redemption per (coupon, user), enforced by the unique index
type CouponUsage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID  int64     `gorm:"uniqueIndex:idx_coupon_user" json:"coupon_id"`
	UserID    int64     `gorm:"uniqueIndex:idx_coupon_user" json:"user_id"`
	OrderID   int64     `gorm:"index" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CouponUsage) TableName() string {
	return "coupon_usage"
}
