package webserver_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/order"
	"github.com/hvacmart/storefront/internal/testutil"
	"github.com/hvacmart/storefront/internal/testutil/apitest"
	"github.com/hvacmart/storefront/internal/webserver"
)

type pingRequest struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=5"`
}

func registerProbeRoutes() {
	webserver.ApiGET("/probe/public", func(c echo.Context) error {
		return webserver.Ok(c, "public")
	})
	webserver.AuthGET("/probe/me", func(c echo.Context) error {
		return webserver.Ok(c, webserver.CurrentUserID(c))
	})
	webserver.AdminGET("/probe", func(c echo.Context) error {
		return webserver.Ok(c, webserver.CurrentUser(c).Role)
	})
	webserver.ApiPOST("/probe/bind", func(c echo.Context) error {
		var req pingRequest
		if err := c.Bind(&req); err != nil {
			return webserver.HandleError(c, err)
		}
		if err := c.Validate(&req); err != nil {
			return webserver.HandleError(c, err)
		}
		return webserver.Ok(c, req)
	})
	webserver.ApiGET("/probe/missing-order", func(c echo.Context) error {
		return webserver.HandleError(c, errors.Wrap(order.ErrOrderNotFound, "load order 7"))
	})
	webserver.ApiGET("/probe/boom", func(c echo.Context) error {
		return webserver.HandleError(c, errors.New("connection reset"))
	})
	webserver.ApiGET("/probe/panic", func(c echo.Context) error {
		panic("unexpected")
	})
}

func TestAccessLevels(t *testing.T) {
	h := apitest.New(t)
	registerProbeRoutes()
	customer := testutil.CreateUser(t, h.DB, "c@example.in")
	admin := testutil.CreateAdmin(t, h.DB, "a@example.in")

	rec := h.Do(http.MethodGet, "/api/probe/public", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.Do(http.MethodGet, "/api/probe/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", apitest.Decode(t, rec, nil).Code)

	rec = h.Do(http.MethodGet, "/api/probe/me", nil, h.Token(customer))
	require.Equal(t, http.StatusOK, rec.Code)
	var uid int64
	apitest.Decode(t, rec, &uid)
	assert.Equal(t, customer.ID, uid)

	rec = h.Do(http.MethodGet, "/api/admin/probe", nil, h.Token(customer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", apitest.Decode(t, rec, nil).Code)

	adminToken := h.Token(admin)
	rec = h.Do(http.MethodGet, "/api/admin/probe", nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("demoted admin loses access", func(t *testing.T) {
		require.NoError(t, h.DB.Model(admin).Update("role", domain.RoleCustomer).Error)
		rec := h.Do(http.MethodGet, "/api/admin/probe", nil, adminToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("deleted account", func(t *testing.T) {
		ghost := testutil.CreateUser(t, h.DB, "ghost@example.in")
		token := h.Token(ghost)
		require.NoError(t, h.DB.Delete(ghost).Error)
		rec := h.Do(http.MethodGet, "/api/probe/me", nil, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTokenValidation(t *testing.T) {
	h := apitest.New(t)
	registerProbeRoutes()
	user := testutil.CreateUser(t, h.DB, "t@example.in")

	expired, err := webserver.IssueToken(apitest.JWTSecret, user, time.Now().Add(-webserver.TokenTTL-time.Minute))
	require.NoError(t, err)
	rec := h.Do(http.MethodGet, "/api/probe/me", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := webserver.IssueToken("some-other-secret", user, time.Now())
	require.NoError(t, err)
	rec = h.Do(http.MethodGet, "/api/probe/me", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.Do(http.MethodGet, "/api/probe/me", nil, "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorEnvelope(t *testing.T) {
	h := apitest.New(t)
	registerProbeRoutes()

	rec := h.Do(http.MethodGet, "/api/probe/missing-order", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := apitest.Decode(t, rec, nil)
	assert.Equal(t, "ORDER_NOT_FOUND", env.Code)
	assert.Contains(t, env.Error, "order not found")

	rec = h.Do(http.MethodGet, "/api/probe/boom", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env = apitest.Decode(t, rec, nil)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.NotContains(t, env.Error, "connection reset")

	rec = h.Do(http.MethodGet, "/api/probe/panic", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = h.Do(http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", apitest.Decode(t, rec, nil).Code)

	rec = h.Do(http.MethodPost, "/api/probe/bind", map[string]interface{}{"count": 9}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env = apitest.Decode(t, rec, nil)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)
	assert.Equal(t, map[string]string{"name": "required", "count": "max=5"}, env.Details)

	rec = h.DoRaw(http.MethodPost, "/api/probe/bind", []byte(`{"name":`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env = apitest.Decode(t, rec, nil)
	assert.Equal(t, "BAD_REQUEST", env.Code)
	assert.Equal(t, "invalid JSON body", env.Error)

	rec = h.Do(http.MethodPost, "/api/probe/bind", map[string]interface{}{"name": "ok", "count": 2}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.DoRaw(http.MethodPost, "/api/probe/bind", []byte(`{"name":"`+strings.Repeat("x", 3<<20)+`"}`), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	h := apitest.New(t)
	webserver.ApiPOST("/probe/limited", func(c echo.Context) error {
		return webserver.Ok(c, "ok")
	}, webserver.AuthRateLimit(2))

	for i := 0; i < 2; i++ {
		rec := h.Do(http.MethodPost, "/api/probe/limited", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := h.Do(http.MethodPost, "/api/probe/limited", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", apitest.Decode(t, rec, nil).Code)
}
