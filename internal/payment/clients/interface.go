package clients

import "context"

// GatewayOrder is the order object a payment gateway creates for one
// checkout attempt. The customer pays against its ID.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the interface for payment gateway clients
type Gateway interface {
	// CreateOrder registers amount (in paise) with the gateway and returns
	// the gateway order the customer will pay against
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)

func (f GatewayFunc) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	return f(ctx, amount, currency, receipt)
}
