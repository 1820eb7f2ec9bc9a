package payment

import "time"

type CreateOrderRequest struct {
	BookingID int64   `json:"booking_id" binding:"required,gt=0" example:"123"`
	Amount    float64 `json:"amount" binding:"gte=0" example:"15500"`
}

type CreateOrderResponse struct {
	OrderID          string  `json:"order_id" example:"order_123_1761000000000"`
	PaymentSessionID string  `json:"payment_session_id" example:"session_abc"`
	Amount           float64 `json:"amount" example:"15500"`
	Currency         string  `json:"currency" example:"INR"`
	Status           string  `json:"status" example:"pending"`
}

type OrderStatusResponse struct {
	OrderID       string     `json:"order_id"`
	BookingID     int64      `json:"booking_id"`
	Status        string     `json:"status"`
	GatewayStatus string     `json:"gateway_status,omitempty"`
	Amount        float64    `json:"amount"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"invalid request"`
}

type WebhookAck struct {
	Status string `json:"status" example:"ok"`
}
