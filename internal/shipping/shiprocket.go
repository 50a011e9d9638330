package shipping

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

const (
	defaultShiprocketEndpoint = "https://apiv2.shiprocket.in/v1/external"
	// login tokens are valid for ten days
	tokenLifetime = 9 * 24 * time.Hour
)

// ShiprocketClient implements Provider on the Shiprocket external API.
// The login token is cached and refreshed on expiry or a 401.
type ShiprocketClient struct {
	endpoint string
	email    string
	password string
	timeout  time.Duration

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewShiprocketClient(endpoint, email, password string, timeout time.Duration) *ShiprocketClient {
	if endpoint == "" {
		endpoint = defaultShiprocketEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ShiprocketClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		email:    email,
		password: password,
		timeout:  timeout,
	}
}

type adhocResponse struct {
	OrderID     int64  `json:"order_id"`
	ShipmentID  int64  `json:"shipment_id"`
	Status      string `json:"status"`
	AwbCode     string `json:"awb_code"`
	CourierName string `json:"courier_name"`
	Message     string `json:"message"`
}

type awbResponse struct {
	AwbAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AwbCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
	Message string `json:"message"`
}

func (c *ShiprocketClient) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	items := make([]gout.H, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, gout.H{
			"name":          it.Name,
			"sku":           it.Sku,
			"units":         it.Units,
			"selling_price": it.SellingPrice.StringFixed(2),
		})
	}
	paymentMethod := "Prepaid"
	if req.Cod {
		paymentMethod = "COD"
	}
	payload := gout.H{
		"order_id":              req.OrderNo,
		"order_date":            req.OrderDate.Format("2006-01-02 15:04"),
		"pickup_location":       req.PickupLocation,
		"billing_customer_name": req.Name,
		"billing_last_name":     "",
		"billing_address":       req.Line1,
		"billing_address_2":     req.Line2,
		"billing_city":          req.City,
		"billing_pincode":       req.Pincode,
		"billing_state":         req.State,
		"billing_country":       "India",
		"billing_email":         req.Email,
		"billing_phone":         req.Phone,
		"shipping_is_billing":   true,
		"order_items":           items,
		"payment_method":        paymentMethod,
		"sub_total":             req.SubTotal.StringFixed(2),
		"length":                req.Length,
		"breadth":               req.Breadth,
		"height":                req.Height,
		"weight":                req.Weight,
	}

	var created adhocResponse
	if err := c.call(ctx, "/orders/create/adhoc", payload, &created); err != nil {
		return nil, err
	}
	if created.ShipmentID == 0 {
		return nil, fmt.Errorf("shiprocket: order not created: %s", created.Message)
	}

	result := &ShipmentResult{
		ProviderOrderID: strconv.FormatInt(created.OrderID, 10),
		ShipmentID:      strconv.FormatInt(created.ShipmentID, 10),
		AwbCode:         created.AwbCode,
		Courier:         created.CourierName,
	}
	if result.AwbCode != "" {
		return result, nil
	}

	var awb awbResponse
	if err := c.call(ctx, "/courier/assign/awb", gout.H{"shipment_id": created.ShipmentID}, &awb); err != nil {
		return nil, err
	}
	if awb.AwbAssignStatus != 1 || awb.Response.Data.AwbCode == "" {
		return nil, fmt.Errorf("shiprocket: awb not assigned for shipment %d: %s", created.ShipmentID, awb.Message)
	}
	result.AwbCode = awb.Response.Data.AwbCode
	result.Courier = awb.Response.Data.CourierName
	return result, nil
}

func (c *ShiprocketClient) call(ctx context.Context, path string, payload gout.H, out interface{}) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}
	var (
		body string
		code int
	)
	err = gout.POST(c.endpoint + path).
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + token}).
		SetJSON(payload).
		BindBody(&body).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("shiprocket %s: %w", path, err)
	}
	if code == 401 {
		c.resetToken()
		return fmt.Errorf("shiprocket %s: unauthorized", path)
	}
	if code < 200 || code >= 300 {
		zap.L().Warn("shiprocket request rejected",
			zap.String("namespace", "shipping"),
			zap.String("path", path),
			zap.Int("status", code),
			zap.String("body", body))
		return fmt.Errorf("shiprocket %s: status %d", path, code)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("shiprocket %s: decode: %w", path, err)
	}
	return nil
}

func (c *ShiprocketClient) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}
	if c.email == "" || c.password == "" {
		return "", fmt.Errorf("shiprocket: credentials are not configured")
	}

	var (
		resp struct {
			Token   string `json:"token"`
			Message string `json:"message"`
		}
		code int
	)
	err := gout.POST(c.endpoint + "/auth/login").
		WithContext(ctx).
		SetTimeout(c.timeout).
		SetJSON(gout.H{"email": c.email, "password": c.password}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		return "", fmt.Errorf("shiprocket login: %w", err)
	}
	if code != 200 || resp.Token == "" {
		return "", fmt.Errorf("shiprocket login: status %d: %s", code, resp.Message)
	}
	c.token = resp.Token
	c.tokenExp = time.Now().Add(tokenLifetime)
	return c.token, nil
}

func (c *ShiprocketClient) resetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
