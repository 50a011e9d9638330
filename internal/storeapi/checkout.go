package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/hvacmart/storefront/internal/checkout"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/webserver"
)

type couponValidateRequest struct {
	Code     string           `json:"code" validate:"required,max=40"`
	Subtotal *decimal.Decimal `json:"subtotal"`
}

type couponValidateResponse struct {
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
}

type summaryRequest struct {
	Items      []order.ItemInput `json:"items" validate:"omitempty,dive"`
	CouponCode string            `json:"coupon_code" validate:"max=40"`
}

func registerCheckoutRoutes() {
	webserver.AuthPOST("/coupons/validate", validateCoupon)
	webserver.AuthPOST("/checkout/summary", checkoutSummary)
	webserver.ApiGET("/emi/plans", listEmiPlans)
	webserver.ApiGET("/emi/quote", quoteEmi)
}

// validateCoupon checks a code for the caller. Without an explicit subtotal
// the cart subtotal is used.
func validateCoupon(c echo.Context) error {
	var req couponValidateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	ctx := c.Request().Context()
	uid := currentUserID(c)
	orders := GetAppContext(c).Orders()

	var subtotal decimal.Decimal
	if req.Subtotal != nil {
		if req.Subtotal.IsNegative() {
			return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", "subtotal must not be negative", nil)
		}
		subtotal = *req.Subtotal
	} else {
		quote, err := orders.Preview(ctx, uid, nil, "")
		if err != nil {
			return handleError(c, err)
		}
		subtotal = quote.Summary.Subtotal
	}

	coupon, discount, err := orders.CheckCoupon(ctx, req.Code, uid, subtotal)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, couponValidateResponse{
		Code:        coupon.Code,
		Type:        coupon.Type,
		Description: coupon.Description,
		Subtotal:    subtotal,
		Discount:    discount,
	})
}

// checkoutSummary prices explicit items, or the cart when none are given.
func checkoutSummary(c echo.Context) error {
	var req summaryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	quote, err := GetAppContext(c).Orders().Preview(c.Request().Context(), currentUserID(c), req.Items, req.CouponCode)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, quote)
}

// listEmiPlans lists active plans, priced for amount when it is given.
func listEmiPlans(c echo.Context) error {
	var plans []domain.EmiPlan
	err := GetDB(c).Where("active = ?", true).
		Order("bank ASC").
		Order("tenure_months ASC").
		Find(&plans).Error
	if err != nil {
		return handleError(c, err)
	}
	amount, err := decimalParam(c, "amount")
	if err != nil {
		return handleError(c, err)
	}
	if amount == nil {
		return ok(c, plans)
	}
	if !amount.IsPositive() {
		return handleError(c, checkout.ErrInvalidEmiAmount)
	}
	return ok(c, checkout.Quotes(*amount, plans))
}

// quoteEmi prices an arbitrary amount, rate and tenure with its schedule.
func quoteEmi(c echo.Context) error {
	amount, err := decimalParam(c, "amount")
	if err != nil {
		return handleError(c, err)
	}
	if amount == nil || !amount.IsPositive() {
		return handleError(c, checkout.ErrInvalidEmiAmount)
	}
	rate, err := decimalParam(c, "rate")
	if err != nil {
		return handleError(c, err)
	}
	if rate == nil {
		zero := decimal.Zero
		rate = &zero
	}
	if rate.IsNegative() {
		return handleError(c, checkout.ErrInvalidEmiRate)
	}
	months := cast.ToInt(c.QueryParam("months"))
	quote, err := checkout.Quote(*amount, *rate, months, c.QueryParam("schedule") != "false")
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, quote)
}
