package domain

import "time"

type PaymentOrderStatus string

const (
	OrderPending PaymentOrderStatus = "pending"
	OrderPaid    PaymentOrderStatus = "paid"
	OrderFailed  PaymentOrderStatus = "failed"
)

// PaymentOrder is one payment intent registered with the gateway. It leaves
// pending once; a locally expired or unregistered order can still be paid.
type PaymentOrder struct {
	ID                 int64              `gorm:"primaryKey" json:"id"`
	BookingID          int64              `gorm:"index;not null" json:"booking_id"`
	TenantID           int64              `gorm:"index;not null" json:"tenant_id"`
	ExternalOrderID    string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_order_id"`
	Amount             float64            `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency           string             `gorm:"type:varchar(3);not null" json:"currency"`
	Status             PaymentOrderStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`
	SessionToken       string             `gorm:"type:text" json:"-"`
	ExternalPaymentRef *string            `gorm:"type:varchar(64)" json:"external_payment_ref,omitempty"`
	PaidAmount         *float64           `gorm:"type:decimal(12,2)" json:"paid_amount,omitempty"`
	GatewayStatus      string             `gorm:"type:varchar(32)" json:"gateway_status,omitempty"`
	FailureReason      string             `gorm:"type:text" json:"failure_reason,omitempty"`
	WebhookPayload     string             `gorm:"type:text" json:"-"`
	PaidAt             *time.Time         `json:"paid_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (PaymentOrder) TableName() string { return "payment_orders" }

// Failure reasons set by this service rather than reported by the gateway.
const (
	FailureExpired            = "expired"
	FailureGatewayUnavailable = "gateway_unavailable"
)

// Settled reports whether the order has reached a terminal state.
func (o *PaymentOrder) Settled() bool {
	return o.Status == OrderPaid || o.Status == OrderFailed
}

// Recoverable reports whether a later PAID result may still move the order
// to paid. Only failures decided locally qualify; a gateway-reported failure
// is final.
func (o *PaymentOrder) Recoverable() bool {
	return o.Status == OrderFailed &&
		(o.FailureReason == FailureExpired || o.FailureReason == FailureGatewayUnavailable)
}

type DeliveryStatus string

const (
	DeliveryProcessed DeliveryStatus = "processed"
	DeliveryIgnored   DeliveryStatus = "ignored"
	DeliveryFailed    DeliveryStatus = "failed"
)

// WebhookDelivery records one authenticated gateway notification so failed
// processing can be replayed without the gateway resending it.
type WebhookDelivery struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ExternalOrderID string         `gorm:"type:varchar(64);index" json:"external_order_id"`
	GatewayStatus   string         `gorm:"type:varchar(32)" json:"gateway_status"`
	Payload         string         `gorm:"type:text;not null" json:"-"`
	Status          DeliveryStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts        int            `gorm:"not null;default:0" json:"attempts"`
	LastError       string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (WebhookDelivery) TableName() string { return "payment_webhook_deliveries" }
