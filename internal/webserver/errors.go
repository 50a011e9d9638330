package webserver

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/internal/catalog"
	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/inventory"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment"
	"github.com/hvacmart/storefront/internal/shipping"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// domainErrors maps service sentinels to HTTP status and error code. The
// first match wins.
var domainErrors = []errorMapping{
	{catalog.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{order.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{order.ErrAddressNotFound, http.StatusNotFound, "ADDRESS_NOT_FOUND"},
	{order.ErrPaymentNotFound, http.StatusNotFound, "PAYMENT_NOT_FOUND"},
	{order.ErrCouponNotFound, http.StatusNotFound, "COUPON_NOT_FOUND"},
	{order.ErrProductUnavailable, http.StatusBadRequest, "PRODUCT_UNAVAILABLE"},
	{order.ErrInvalidPaymentMethod, http.StatusBadRequest, "INVALID_PAYMENT_METHOD"},
	{order.ErrOrderNotPending, http.StatusConflict, "INVALID_ORDER_STATE"},
	{order.ErrInvalidTransition, http.StatusConflict, "INVALID_ORDER_STATE"},
	{order.ErrPaymentNotPending, http.StatusConflict, "INVALID_PAYMENT_STATE"},
	{inventory.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{inventory.ErrReservationLost, http.StatusConflict, "CONFLICT"},
	{inventory.ErrInvalidAdjustment, http.StatusBadRequest, "INVALID_ADJUSTMENT"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
	{checkout.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{checkout.ErrCouponAlreadyUsed, http.StatusConflict, "COUPON_ALREADY_USED"},
	{checkout.ErrCouponExhausted, http.StatusConflict, "COUPON_EXHAUSTED"},
	{checkout.ErrCouponInactive, http.StatusBadRequest, "INVALID_COUPON"},
	{checkout.ErrCouponNotStarted, http.StatusBadRequest, "INVALID_COUPON"},
	{checkout.ErrCouponExpired, http.StatusBadRequest, "INVALID_COUPON"},
	{checkout.ErrCouponMinOrder, http.StatusBadRequest, "INVALID_COUPON"},
	{checkout.ErrCouponUnknownType, http.StatusBadRequest, "INVALID_COUPON"},
	{checkout.ErrInvalidEmiTerm, http.StatusBadRequest, "INVALID_EMI"},
	{checkout.ErrInvalidEmiRate, http.StatusBadRequest, "INVALID_EMI"},
	{checkout.ErrInvalidEmiAmount, http.StatusBadRequest, "INVALID_EMI"},
	{payment.ErrSignatureMismatch, http.StatusBadRequest, "SIGNATURE_MISMATCH"},
	{payment.ErrOrderNotPayable, http.StatusConflict, "ORDER_NOT_PAYABLE"},
	{payment.ErrGatewayUnavailable, http.StatusBadGateway, "GATEWAY_UNAVAILABLE"},
	{shipping.ErrBadSignature, http.StatusUnauthorized, "INVALID_SIGNATURE"},
	{shipping.ErrMissingAwb, http.StatusBadRequest, "INVALID_PAYLOAD"},
	{shipping.ErrMalformedPayload, http.StatusBadRequest, "INVALID_PAYLOAD"},
	{shipping.ErrUnknownShipment, http.StatusNotFound, "SHIPMENT_NOT_FOUND"},
	{shipping.ErrNoProvider, http.StatusServiceUnavailable, "SHIPPING_UNAVAILABLE"},
	{gorm.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND"},
	{gorm.ErrDuplicatedKey, http.StatusConflict, "CONFLICT"},
}

// HandleError renders err in the error envelope. Known domain errors keep
// their message; anything else is logged and reported as a 500.
func HandleError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return Fail(c, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", ValidationDetails(verrs))
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return err
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return Fail(c, m.status, m.code, err.Error(), nil)
		}
	}
	zap.L().Error("request failed",
		zap.String("namespace", "http"),
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}
