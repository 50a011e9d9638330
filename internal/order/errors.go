package order

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrAddressNotFound      = errors.New("address not found")
	ErrProductUnavailable   = errors.New("product is not available")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrOrderNotPending      = errors.New("order is no longer pending")
	ErrInvalidTransition    = errors.New("order status change not allowed")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentNotPending    = errors.New("payment is not pending")
	ErrInvalidPaymentMethod = errors.New("payment method must be ONLINE or COD")
)
