package storeapi

import (
	"crypto/subtle"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"

	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/webserver"
	"github.com/hvacmart/storefront/pkg/metrics"
)

const diagTokenHeader = "X-Diag-Token"

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func registerDiagnosticsRoutes() {
	webserver.ApiGET("/diagnostics", diagnostics)
}

// diagnostics reports database reachability and runtime counters. It is
// hidden unless a diagnostics token is configured.
func diagnostics(c echo.Context) error {
	appCtx := GetAppContext(c)
	token := appCtx.Config().System.DiagToken
	if token == "" {
		return echo.ErrNotFound
	}
	given := c.Request().Header.Get(diagTokenHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid diagnostics token", nil)
	}

	result := map[string]interface{}{
		"version":    app.Version,
		"goroutines": runtime.NumGoroutine(),
		"bus_busy":   appCtx.Bus().Running(),
	}
	dbStatus := "ok"
	if sqlDB, err := appCtx.DB().DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		dbStatus = "unreachable"
	}
	result["database"] = dbStatus

	var orders []statusCount
	if dbStatus == "ok" {
		GetDB(c).Model(&domain.Order{}).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&orders)
	}
	result["orders"] = orders

	counters := map[string]int64{}
	for _, name := range []string{
		metrics.OrdersPlaced, metrics.OrdersConfirmed, metrics.OrdersCancelled,
		metrics.PaymentsSuccess, metrics.PaymentsFailed,
		metrics.ShipmentsCreated, metrics.ShipmentsFailed, metrics.WebhooksRejected,
	} {
		counters[name] = metrics.Counter(name)
	}
	result["counters"] = counters
	return ok(c, result)
}
