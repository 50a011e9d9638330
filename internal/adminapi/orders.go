package adminapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/webserver"
)

type statusPayload struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED PROCESSING SHIPPED DELIVERED CANCELLED RETURNED"`
	Reason string `json:"reason" validate:"max=255"`
}

type adminOrderDetail struct {
	*domain.Order
	Customer     *domain.User              `json:"customer,omitempty"`
	Payments     []*domain.Payment         `json:"payments"`
	Shipments    []domain.ShipmentTracking `json:"shipments"`
	NextStatuses []string                  `json:"next_statuses"`
}

// orderCSV is one exported order.
type orderCSV struct {
	OrderNo       string `csv:"order_no"`
	CreatedAt     string `csv:"created_at"`
	Status        string `csv:"status"`
	PaymentMethod string `csv:"payment_method"`
	UserID        int64  `csv:"user_id"`
	ShipName      string `csv:"ship_name"`
	ShipCity      string `csv:"ship_city"`
	ShipPincode   string `csv:"ship_pincode"`
	Items         int    `csv:"items"`
	Subtotal      string `csv:"subtotal"`
	Shipping      string `csv:"shipping"`
	Tax           string `csv:"tax"`
	Discount      string `csv:"discount"`
	Total         string `csv:"total"`
	CouponCode    string `csv:"coupon_code"`
}

func registerOrderRoutes() {
	webserver.AdminGET("/orders", listOrders)
	webserver.AdminGET("/orders/export", exportOrders)
	webserver.AdminGET("/orders/:id", getOrder)
	webserver.AdminPUT("/orders/:id/status", updateOrderStatus)
	webserver.AdminPOST("/orders/:id/ship", shipOrder)
}

// orderFilter reads status, user_id, q (order number prefix) and the from/to
// dates. A date-only to covers that whole day.
func orderFilter(c echo.Context) (order.Filter, error) {
	filter := order.Filter{
		UserID:  cast.ToInt64(c.QueryParam("user_id")),
		Status:  strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
		OrderNo: strings.ToUpper(strings.TrimSpace(c.QueryParam("q"))),
	}
	var err error
	if filter.From, err = parseDateParam(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(c, "to"); err != nil {
		return filter, err
	}
	if filter.To != nil {
		end := inclusiveEnd(*filter.To)
		filter.To = &end
	}
	return filter, nil
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter, err := orderFilter(c)
	if err != nil {
		return handleError(c, err)
	}
	rows, total, err := GetAppContext(c).Orders().List(c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return handleError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	o, err := appCtx.Orders().Get(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	payments, err := appCtx.Orders().Payments(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	shipments, err := appCtx.Tracker().ForOrder(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	detail := adminOrderDetail{
		Order:        o,
		Payments:     payments,
		Shipments:    shipments,
		NextStatuses: order.NextStatuses(o.Status),
	}
	var customer domain.User
	if GetDB(c).First(&customer, o.UserID).Error == nil {
		detail.Customer = &customer
	}
	return ok(c, detail)
}

// updateOrderStatus moves an order along the transition table. Cancelling
// returns its stock like a customer cancellation.
func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	var payload statusPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return handleError(c, err)
	}
	orders := GetAppContext(c).Orders()
	var o *domain.Order
	if payload.Status == domain.OrderCancelled {
		reason := payload.Reason
		if reason == "" {
			reason = "cancelled by store"
		}
		o, err = orders.Cancel(c.Request().Context(), id, 0, reason)
	} else {
		o, err = orders.Transition(c.Request().Context(), id, payload.Status)
	}
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "order.status", fmt.Sprintf("order %s -> %s %s", o.OrderNo, payload.Status, payload.Reason))
	return ok(c, o)
}

// shipOrder books the shipment again for a confirmed order whose automatic
// booking failed.
func shipOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return handleError(c, err)
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	o, err := appCtx.Orders().Get(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	if o.Status != domain.OrderConfirmed && o.Status != domain.OrderProcessing {
		return handleError(c, order.ErrInvalidTransition)
	}
	if err := appCtx.Dispatcher().Dispatch(ctx, id); err != nil {
		return handleError(c, err)
	}
	shipments, err := appCtx.Tracker().ForOrder(ctx, id)
	if err != nil {
		return handleError(c, err)
	}
	audit(c, "order.ship", fmt.Sprintf("requested shipment for order %s", o.OrderNo))
	return ok(c, shipments)
}

func exportOrders(c echo.Context) error {
	filter, err := orderFilter(c)
	if err != nil {
		return handleError(c, err)
	}
	rows, _, err := GetAppContext(c).Orders().List(c.Request().Context(), filter, 1, maxExportRows)
	if err != nil {
		return handleError(c, err)
	}
	out := make([]*orderCSV, 0, len(rows))
	for _, o := range rows {
		items := 0
		for _, it := range o.Items {
			items += it.Quantity
		}
		out = append(out, &orderCSV{
			OrderNo:       o.OrderNo,
			CreatedAt:     o.CreatedAt.Format(time.RFC3339),
			Status:        o.Status,
			PaymentMethod: o.PaymentMethod,
			UserID:        o.UserID,
			ShipName:      o.ShipName,
			ShipCity:      o.ShipCity,
			ShipPincode:   o.ShipPincode,
			Items:         items,
			Subtotal:      o.Subtotal.StringFixed(2),
			Shipping:      o.ShippingCost.StringFixed(2),
			Tax:           o.TaxAmount.StringFixed(2),
			Discount:      o.DiscountAmount.StringFixed(2),
			Total:         o.Total.StringFixed(2),
			CouponCode:    o.CouponCode,
		})
	}
	return sendCSV(c, fmt.Sprintf("orders-%s.csv", time.Now().Format("20060102")), &out)
}
