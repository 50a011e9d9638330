// Package apitest runs the HTTP API against an in-memory database.
package apitest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hvacmart/storefront/config"
	"github.com/hvacmart/storefront/internal/app"
	"github.com/hvacmart/storefront/internal/domain"
	"github.com/hvacmart/storefront/internal/testutil"
	"github.com/hvacmart/storefront/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	JWTSecret      = "test-jwt-secret"
	GatewaySecret  = "rzp_secret"
	ShipmentSecret = "whsec"
	ChatSecret     = "chatsec"
	DiagToken      = "diag-token"
)

// Harness is a fully wired application behind an echo instance.
type Harness struct {
	T       *testing.T
	App     *app.Application
	DB      *gorm.DB
	Echo    *echo.Echo
	Gateway *httptest.Server
}

// Envelope is the decoded response body.
type Envelope struct {
	Data     jsoniter.RawMessage `json:"data"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
	Error    string              `json:"error"`
	Code     string              `json:"code"`
	Details  map[string]string   `json:"details"`
}

// New builds the application with a fake payment gateway that hands out
// sequential order ids. Route packages are registered by the caller.
func New(t *testing.T) *Harness {
	t.Helper()
	var seq int64
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&seq, 1)
		var req struct {
			Amount jsoniter.Number `json:"amount"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"id":"order_test%d","entity":"order","amount":%s,"currency":"INR","status":"created"}`, n, req.Amount)
	}))
	t.Cleanup(gateway.Close)

	cfg := *config.DefaultAppConfig
	cfg.System.Debug = false
	cfg.System.DiagToken = DiagToken
	cfg.Web.Secret = JWTSecret
	cfg.Web.BaseUrl = "https://shop.example.in"
	cfg.Web.AuthRate = 1000
	cfg.Payment.Endpoint = gateway.URL
	cfg.Payment.KeyId = "rzp_test_key"
	cfg.Payment.KeySecret = GatewaySecret
	cfg.Shipping.Email = ""
	cfg.Shipping.WebhookSecret = ShipmentSecret
	cfg.Chat.WebhookSecret = ChatSecret
	cfg.Smtp.Host = ""

	a := app.NewApplication(&cfg)
	a.OverrideDB(testutil.NewDB(t))
	require.NoError(t, a.InitServices())
	t.Cleanup(func() { a.Bus().Close() })

	webserver.Init(a)
	return &Harness{T: t, App: a, DB: a.DB(), Echo: webserver.Root(), Gateway: gateway}
}

// Token issues an access token for user.
func (h *Harness) Token(user *domain.User) string {
	token, err := webserver.IssueToken(JWTSecret, user, time.Now())
	require.NoError(h.T, err)
	return token
}

// Do sends a JSON request. body may be nil.
func (h *Harness) Do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	h.T.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.T, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

// DoRaw sends body as is with extra headers.
func (h *Harness) DoRaw(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	h.T.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

// PostForm sends an url-encoded form post.
func (h *Harness) PostForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.T.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

// Get sends a GET with cookies and no token.
func (h *Harness) Get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.T.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

// Decode parses the envelope and, when out is non-nil, its data field.
func Decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return env
}

// Unmarshal decodes a raw data field taken from an Envelope.
func Unmarshal(data jsoniter.RawMessage, out interface{}) error {
	return json.Unmarshal(data, out)
}
