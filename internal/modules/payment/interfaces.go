package payment

import "context"

// Gateway is the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)
}

type GatewayOrderRequest struct {
	OrderID       string
	Amount        float64
	Currency      string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ReturnURL     string
}

// GatewayOrder is the provider's view of an order. Amount keeps the
// provider's decimal text so it can be compared exactly.
type GatewayOrder struct {
	OrderID          string
	PaymentSessionID string
	Status           string
	Amount           string
}
