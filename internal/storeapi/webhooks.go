package storeapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/shipping"
	"github.com/hvacmart/storefront/internal/webserver"
	"github.com/hvacmart/storefront/pkg/common"
	"github.com/hvacmart/storefront/pkg/metrics"
)

const (
	shipmentSignatureHeader = "X-Shipment-Signature"
	chatSignatureHeader     = "X-Chat-Signature"

	maxWebhookBody = 1 << 20
)

func registerWebhookRoutes() {
	webserver.ApiPOST("/webhooks/shipment", shipmentWebhook)
	webserver.ApiPOST("/webhooks/chat", chatWebhook)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable body").SetInternal(err)
	}
	return body, nil
}

// shipmentWebhook applies a courier status push. Deliveries for shipments
// this store does not know are acknowledged so the provider stops retrying.
func shipmentWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return handleError(c, err)
	}
	tracking, err := GetAppContext(c).Tracker().HandleWebhook(c.Request().Context(), body, c.Request().Header.Get(shipmentSignatureHeader))
	if errors.Is(err, shipping.ErrUnknownShipment) {
		return ok(c, map[string]string{"status": "ignored"})
	}
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, tracking)
}

// chatWebhook records inbound chat widget events after checking their HMAC
// signature. Without a configured secret events are stored unverified.
func chatWebhook(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return handleError(c, err)
	}
	secret := GetAppContext(c).Config().Chat.WebhookSecret
	verified := false
	if secret != "" {
		if !common.VerifyHmacSha256Hex(secret, body, c.Request().Header.Get(chatSignatureHeader)) {
			metrics.Incr(metrics.WebhooksRejected)
			zap.L().Warn("chat webhook signature mismatch", zap.String("namespace", "webhook"))
			return handleError(c, shipping.ErrBadSignature)
		}
		verified = true
	}
	if !json.Valid(body) {
		return handleError(c, shipping.ErrMalformedPayload)
	}

	evt := domain.WebhookEvent{
		Provider:   "chat",
		EventType:  json.Get(body, "event").ToString(),
		Reference:  json.Get(body, "conversation_id").ToString(),
		Verified:   verified,
		Payload:    string(body),
		ReceivedAt: time.Now(),
	}
	if err := GetDB(c).Create(&evt).Error; err != nil {
		return handleError(c, err)
	}
	return ok(c, map[string]interface{}{"received": true, "id": evt.ID})
}
