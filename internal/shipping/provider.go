package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ShipmentItem struct {
	Name         string          `json:"name"`
	Sku          string          `json:"sku"`
	Units        int             `json:"units"`
	SellingPrice decimal.Decimal `json:"selling_price"`
}

// ShipmentRequest is a courier booking for one order.
type ShipmentRequest struct {
	OrderNo        string
	OrderDate      time.Time
	PickupLocation string
	Name           string
	Phone          string
	Email          string
	Line1          string
	Line2          string
	City           string
	State          string
	Pincode        string
	Cod            bool
	SubTotal       decimal.Decimal
	Items          []ShipmentItem
	// package dimensions in cm and kg
	Length, Breadth, Height, Weight float64
}

type ShipmentResult struct {
	ProviderOrderID string
	ShipmentID      string
	AwbCode         string
	Courier         string
}

// Provider books shipments with a courier aggregator
type Provider interface {
	CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error)

func (f ProviderFunc) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	return f(ctx, req)
}
