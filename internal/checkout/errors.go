package checkout

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotStarted  = errors.New("coupon is not yet valid")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponMinOrder    = errors.New("order value is below the coupon minimum")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrCouponAlreadyUsed = errors.New("coupon already used by this customer")
	ErrCouponUnknownType = errors.New("unknown coupon type")
	ErrInvalidEmiTerm    = errors.New("emi tenure must be positive")
	ErrInvalidEmiRate    = errors.New("emi rate must not be negative")
	ErrInvalidEmiAmount  = errors.New("emi amount must be positive")
)
