package webserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// AuthRateLimit throttles login and signup per client IP to perMinute
// attempts with an equal burst. The store is process local.
func AuthRateLimit(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return Fail(c, http.StatusForbidden, "FORBIDDEN", "client not identified", nil)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return Fail(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts, try again later", nil)
		},
	})
}
