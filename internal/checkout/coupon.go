package checkout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hvacmart/storefront/internal/domain"
)

// NormalizeCode upper-cases and trims a user supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCoupon checks the coupon-level rules at time now for an order of
// subtotal. Per-customer redemption is checked by the caller against
// coupon_usage.
func ValidateCoupon(c *domain.Coupon, subtotal decimal.Decimal, now time.Time) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponNotStarted
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return ErrCouponExpired
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return ErrCouponMinOrder
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrCouponExhausted
	}
	switch c.Type {
	case domain.CouponPercentage, domain.CouponFixed, domain.CouponFreeShipping:
	default:
		return ErrCouponUnknownType
	}
	return nil
}
