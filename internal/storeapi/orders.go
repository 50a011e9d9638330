package storeapi

import (
	"github.com/labstack/echo/v4"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/webserver"
)

type placeOrderRequest struct {
	Items         []order.ItemInput `json:"items" validate:"omitempty,dive"`
	AddressID     int64             `json:"address_id" validate:"required,gt=0"`
	CouponCode    string            `json:"coupon_code" validate:"max=40"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,oneof=ONLINE COD"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type orderDetail struct {
	*domain.Order
	Payments  []*domain.Payment         `json:"payments"`
	Shipments []domain.ShipmentTracking `json:"shipments"`
}

func registerOrderRoutes() {
	webserver.AuthPOST("/orders", placeOrder)
	webserver.AuthGET("/orders", listMyOrders)
	webserver.AuthGET("/orders/:id", getMyOrder)
	webserver.AuthPOST("/orders/:id/cancel", cancelMyOrder)
	webserver.AuthGET("/orders/:id/tracking", getMyOrderTracking)
}

// placeOrder checks out explicit items, or the whole cart when items is
// empty. ONLINE orders then need POST /payments to open the gateway form.
func placeOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	o, err := GetAppContext(c).Orders().PlaceOrder(c.Request().Context(), order.PlaceOrderInput{
		UserID:        currentUserID(c),
		Items:         req.Items,
		AddressID:     req.AddressID,
		CouponCode:    req.CouponCode,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return handleError(c, err)
	}
	return created(c, o)
}

func listMyOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := order.Filter{UserID: currentUserID(c), Status: c.QueryParam("status")}
	rows, total, err := GetAppContext(c).Orders().List(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getMyOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	o, err := appCtx.Orders().GetForUser(ctx, id, currentUserID(c))
	if err != nil {
		return handleError(c, err)
	}
	payments, err := appCtx.Orders().Payments(ctx, o.ID)
	if err != nil {
		return handleError(c, err)
	}
	shipments, err := appCtx.Tracker().ForOrder(ctx, o.ID)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, orderDetail{Order: o, Payments: payments, Shipments: shipments})
}

func cancelMyOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var req cancelOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.Reason == "" {
		req.Reason = "cancelled by customer"
	}
	o, err := GetAppContext(c).Orders().Cancel(c.Request().Context(), id, currentUserID(c), req.Reason)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, o)
}

func getMyOrderTracking(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	if _, err := appCtx.Orders().GetForUser(ctx, id, currentUserID(c)); err != nil {
		return handleError(c, err)
	}
	rows, err := appCtx.Tracker().ForOrder(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, rows)
}
