package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/hvacmart/storefront/internal/domain"
)

// Rules are the store-wide pricing parameters.
type Rules struct {
	TaxRate               decimal.Decimal // fraction, 0.18 for 18% GST
	FreeShippingThreshold decimal.Decimal // subtotal at or above which shipping is free
	ShippingFee           decimal.Decimal // flat fee below the threshold
}

// DefaultRules 18% tax, free shipping from ₹500, ₹99 otherwise
var DefaultRules = Rules{
	TaxRate:               decimal.RequireFromString("0.18"),
	FreeShippingThreshold: decimal.NewFromInt(500),
	ShippingFee:           decimal.NewFromInt(99),
}

// Line is one priced cart or order line.
type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Sku       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the priced result of a checkout.
type Summary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	ItemCount      int             `json:"item_count"`
}

// Subtotal sums the line totals.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Totals prices lines under rules and applies coupon when it is non-nil.
// The coupon is assumed to be validated already, see ValidateCoupon.
// total = subtotal + shipping + tax - discount, discount <= subtotal.
func Totals(lines []Line, coupon *domain.Coupon, rules Rules) (Summary, error) {
	if len(lines) == 0 {
		return Summary{}, ErrEmptyCart
	}
	count := 0
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Summary{}, ErrInvalidQuantity
		}
		count += l.Quantity
	}

	subtotal := Subtotal(lines)
	shipping := decimal.Zero
	if subtotal.LessThan(rules.FreeShippingThreshold) {
		shipping = rules.ShippingFee
	}
	tax := subtotal.Mul(rules.TaxRate).Round(2)

	s := Summary{
		Subtotal:       subtotal.Round(2),
		ShippingCost:   shipping.Round(2),
		TaxAmount:      tax,
		DiscountAmount: decimal.Zero,
		ItemCount:      count,
	}
	if coupon != nil {
		d, err := Discount(coupon, subtotal, shipping)
		if err != nil {
			return Summary{}, err
		}
		s.DiscountAmount = d.Round(2)
		s.CouponCode = coupon.Code
	}
	s.Total = s.Subtotal.Add(s.ShippingCost).Add(s.TaxAmount).Sub(s.DiscountAmount)
	return s, nil
}

// Discount computes the coupon discount for subtotal, capped by the coupon's
// max discount (when set) and by subtotal.
func Discount(coupon *domain.Coupon, subtotal, shipping decimal.Decimal) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch coupon.Type {
	case domain.CouponPercentage:
		d = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100))
	case domain.CouponFixed:
		d = coupon.Value
	case domain.CouponFreeShipping:
		d = shipping
	default:
		return decimal.Zero, ErrCouponUnknownType
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	if coupon.MaxDiscount.IsPositive() && d.GreaterThan(coupon.MaxDiscount) {
		d = coupon.MaxDiscount
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	return d, nil
}
