package storeapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/payment"
	"github.com/hvacmart/storefront/internal/webserver"
)

const (
	sessionName = "storefront"
	flashKey    = "payment"
)

type createPaymentRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// paymentFlash is the message the storefront shows after the gateway
// redirects the customer back.
type paymentFlash struct {
	Status  string `json:"status"`
	OrderID int64  `json:"order_id,omitempty"`
	OrderNo string `json:"order_no,omitempty"`
	Message string `json:"message"`
}

func registerPaymentRoutes() {
	webserver.AuthPOST("/payments", createPayment)
	webserver.AuthPOST("/payments/verify", verifyPayment)
	webserver.ApiPOST("/payments/callback", paymentCallback)
	webserver.ApiGET("/payments/flash", paymentFlashes)
}

func createPayment(c echo.Context) error {
	var req createPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	co, err := GetAppContext(c).Payments().CreatePayment(c.Request().Context(), req.OrderID, currentUserID(c))
	if err != nil {
		return handleError(c, err)
	}
	return created(c, co)
}

// verifyPayment confirms a checkout from the client side handler of the
// gateway form.
func verifyPayment(c echo.Context) error {
	var req payment.VerifyInput
	if err := bindAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}
	o, err := GetAppContext(c).Payments().Verify(c.Request().Context(), currentUserID(c), req)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, o)
}

// paymentCallback receives the gateway's form post, verifies it, stores the
// outcome as a session flash and redirects to the storefront.
func paymentCallback(c echo.Context) error {
	base := strings.TrimRight(GetAppContext(c).Config().Web.BaseUrl, "/")
	var req payment.VerifyInput
	if err := bindAndValidate(c, &req); err != nil {
		setPaymentFlash(c, paymentFlash{Status: "failed", Message: "payment response was incomplete"})
		return c.Redirect(http.StatusSeeOther, base+"/checkout?payment=failed")
	}

	o, err := GetAppContext(c).Payments().Verify(c.Request().Context(), 0, req)
	switch {
	case err == nil:
		setPaymentFlash(c, paymentFlash{
			Status:  "success",
			OrderID: o.ID,
			OrderNo: o.OrderNo,
			Message: fmt.Sprintf("Payment received, order %s is confirmed", o.OrderNo),
		})
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s/orders/%d?payment=success", base, o.ID))
	case errors.Is(err, order.ErrOrderNotPending) && o != nil:
		setPaymentFlash(c, paymentFlash{
			Status:  "review",
			OrderID: o.ID,
			OrderNo: o.OrderNo,
			Message: "Payment received after the order was closed, our team will contact you",
		})
		return c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s/orders/%d?payment=review", base, o.ID))
	default:
		zap.L().Warn("payment callback rejected",
			zap.String("namespace", "payment"),
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.Error(err))
		setPaymentFlash(c, paymentFlash{Status: "failed", Message: "payment could not be verified"})
		return c.Redirect(http.StatusSeeOther, base+"/checkout?payment=failed")
	}
}

func setPaymentFlash(c echo.Context, flash paymentFlash) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		zap.L().Warn("load session", zap.Error(err))
		return
	}
	data, err := json.MarshalToString(flash)
	if err != nil {
		return
	}
	sess.AddFlash(data, flashKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Warn("save session", zap.Error(err))
	}
}

// paymentFlashes pops the pending payment messages of this browser session.
func paymentFlashes(c echo.Context) error {
	out := []paymentFlash{}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ok(c, out)
	}
	for _, raw := range sess.Flashes(flashKey) {
		s, isString := raw.(string)
		if !isString {
			continue
		}
		var flash paymentFlash
		if json.UnmarshalFromString(s, &flash) == nil {
			out = append(out, flash)
		}
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return handleError(c, err)
	}
	return ok(c, out)
}
