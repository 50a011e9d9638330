package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hvacmart/storefront/internal/webserver"
	"github.com/hvacmart/storefront/pkg/metrics"
)

var counterNames = []string{
	metrics.OrdersPlaced,
	metrics.OrdersConfirmed,
	metrics.OrdersCancelled,
	metrics.PaymentsSuccess,
	metrics.PaymentsFailed,
	metrics.ShipmentsCreated,
	metrics.ShipmentsFailed,
	metrics.WebhooksRejected,
}

func registerMetricsRoutes() {
	webserver.AdminGET("/metrics/counters", getCounters)
	webserver.AdminGET("/metrics/:name", queryMetric)
}

// getCounters returns the totals since process start.
func getCounters(c echo.Context) error {
	out := make(map[string]int64, len(counterNames))
	for _, name := range counterNames {
		out[name] = metrics.Counter(name)
	}
	return ok(c, out)
}

// queryMetric returns the samples of one series, by default for the last hour.
func queryMetric(c echo.Context) error {
	end := time.Now()
	start := end.Add(-time.Hour)
	from, err := parseDateParam(c, "from")
	if err != nil {
		return handleError(c, err)
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return handleError(c, err)
	}
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "INVALID_RANGE", "to must be after from", nil)
	}
	points, err := metrics.Query(c.Param("name"), start, end)
	if err != nil {
		return handleError(c, err)
	}
	return ok(c, points)
}
