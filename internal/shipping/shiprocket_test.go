package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiprocketCreateShipment(t *testing.T) {
	var logins, creates, assigns int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			logins++
			_, _ = w.Write([]byte(`{"token":"tok-1"}`))
		case "/orders/create/adhoc":
			creates++
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Prepaid", body["payment_method"])
			assert.Equal(t, "HV1", body["order_id"])
			_, _ = w.Write([]byte(`{"order_id":281248157,"shipment_id":280640601,"status":"NEW"}`))
		case "/courier/assign/awb":
			assigns++
			_, _ = w.Write([]byte(`{"awb_assign_status":1,"response":{"data":{"awb_code":"19041424751540","courier_name":"Delhivery Surface"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewShiprocketClient(srv.URL, "ops@example.com", "pw", time.Second)
	req := ShipmentRequest{
		OrderNo:   "HV1",
		OrderDate: time.Now(),
		SubTotal:  decimal.NewFromInt(32000),
		Items:     []ShipmentItem{{Name: "Split AC", Sku: "AC-15T", Units: 1, SellingPrice: decimal.NewFromInt(32000)}},
	}
	res, err := c.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "280640601", res.ShipmentID)
	assert.Equal(t, "281248157", res.ProviderOrderID)
	assert.Equal(t, "19041424751540", res.AwbCode)
	assert.Equal(t, "Delhivery Surface", res.Courier)

	_, err = c.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, logins, "token is cached")
	assert.Equal(t, 2, creates)
	assert.Equal(t, 2, assigns)
}

func TestShiprocketLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid email and password combination"}`))
	}))
	defer srv.Close()

	_, err := NewShiprocketClient(srv.URL, "ops@example.com", "bad", time.Second).
		CreateShipment(context.Background(), ShipmentRequest{OrderNo: "HV1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = NewShiprocketClient(srv.URL, "", "", time.Second).
		CreateShipment(context.Background(), ShipmentRequest{OrderNo: "HV1"})
	assert.Error(t, err)
}
