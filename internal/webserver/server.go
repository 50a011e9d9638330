package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hvacmart/storefront/internal/app"
)

const (
	apiPrefix   = "/api"
	adminPrefix = "/api/admin"

	appCtxKey = "appctx"
)

// WebServer holds the echo instance and the middleware stacks that route
// registrars attach per route.
type WebServer struct {
	root   *echo.Echo
	appCtx app.AppContext
	auth   []echo.MiddlewareFunc
	admin  []echo.MiddlewareFunc
}

var server *WebServer

// Init builds the global server for appCtx. Handler packages register their
// routes afterwards through the ApiX, AuthX and AdminX helpers.
func Init(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.System.Debug
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogMethod:   true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "http"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.Secret))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appCtxKey, appCtx)
			return next(c)
		}
	})

	jwtAuth := JWTMiddleware(cfg.Web.Secret)
	active := requireActiveUser(appCtx)
	server = &WebServer{
		root:   e,
		appCtx: appCtx,
		auth:   []echo.MiddlewareFunc{jwtAuth, active},
		admin:  []echo.MiddlewareFunc{jwtAuth, active, RequireAdmin},
	}
	return server
}

// Root returns the echo instance, handy for httptest.
func Root() *echo.Echo {
	return server.root
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func Listen(ctx context.Context) error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("storefront api listening on %s", addr)
		if err := server.root.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.root.Shutdown(shutdownCtx)
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appCtxKey).(app.AppContext)
}

func add(method, prefix, path string, h echo.HandlerFunc, stack []echo.MiddlewareFunc, m []echo.MiddlewareFunc) *echo.Route {
	mws := make([]echo.MiddlewareFunc, 0, len(stack)+len(m))
	mws = append(mws, stack...)
	mws = append(mws, m...)
	return server.root.Add(method, prefix+path, h, mws...)
}

// Public routes under /api.

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodGet, apiPrefix, path, h, nil, m)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPost, apiPrefix, path, h, nil, m)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPut, apiPrefix, path, h, nil, m)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodDelete, apiPrefix, path, h, nil, m)
}

// Customer routes under /api, bearer token required.

func AuthGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodGet, apiPrefix, path, h, server.auth, m)
}

func AuthPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPost, apiPrefix, path, h, server.auth, m)
}

func AuthPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPut, apiPrefix, path, h, server.auth, m)
}

func AuthDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodDelete, apiPrefix, path, h, server.auth, m)
}

// Back-office routes under /api/admin, admin role required.

func AdminGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodGet, adminPrefix, path, h, server.admin, m)
}

func AdminPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPost, adminPrefix, path, h, server.admin, m)
}

func AdminPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodPut, adminPrefix, path, h, server.admin, m)
}

func AdminDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return add(http.MethodDelete, adminPrefix, path, h, server.admin, m)
}
