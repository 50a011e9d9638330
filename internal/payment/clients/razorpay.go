package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

const defaultRazorpayEndpoint = "https://api.razorpay.com/v1"

// RazorpayClient implements Gateway for the Razorpay orders API
type RazorpayClient struct {
	endpoint  string
	keyID     string
	keySecret string
	timeout   time.Duration
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewRazorpayClient creates a client authenticating with the API key pair.
// An empty endpoint uses the public API.
func NewRazorpayClient(endpoint, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	if endpoint == "" {
		endpoint = defaultRazorpayEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayClient{
		endpoint:  strings.TrimRight(endpoint, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		timeout:   timeout,
	}
}

// CreateOrder calls POST /orders with automatic capture enabled.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("razorpay: amount must be positive")
	}
	if c.keyID == "" || c.keySecret == "" {
		return nil, fmt.Errorf("razorpay: key pair is not configured")
	}

	var (
		resp   GatewayOrder
		apiErr razorpayError
		body   string
		code   int
	)
	err := gout.POST(c.endpoint + "/orders").
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetBasicAuth(c.keyID, c.keySecret).
		SetJSON(gout.H{
			"amount":          amount,
			"currency":        currency,
			"receipt":         receipt,
			"payment_capture": 1,
		}).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		zap.L().Error("razorpay request failed",
			zap.String("namespace", "payment"),
			zap.String("receipt", receipt),
			zap.Error(err))
		return nil, fmt.Errorf("razorpay: %w", err)
	}

	if code < 200 || code >= 300 {
		_ = json.Unmarshal([]byte(body), &apiErr)
		zap.L().Warn("razorpay rejected order",
			zap.String("namespace", "payment"),
			zap.Int("status", code),
			zap.String("code", apiErr.Error.Code),
			zap.String("description", apiErr.Error.Description))
		return nil, fmt.Errorf("razorpay: status %d: %s", code, apiErr.Error.Description)
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("razorpay: response without order id")
	}
	return &resp, nil
}
