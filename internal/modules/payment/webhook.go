package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pgstay/internal/domain"

	"github.com/shopspring/decimal"
)

// Sign returns base64(HMAC-SHA256(secret, body)), the value the gateway
// sends in the x-webhook-signature header.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the raw, unparsed body.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type webhookOrder struct {
	OrderID     string      `json:"order_id"`
	OrderStatus string      `json:"order_status"`
	OrderAmount json.Number `json:"order_amount"`
}

type webhookPayment struct {
	CfPaymentID   json.RawMessage `json:"cf_payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount json.Number     `json:"payment_amount"`
}

type webhookBody struct {
	Order   webhookOrder   `json:"order"`
	Payment webhookPayment `json:"payment"`
}

type webhookEnvelope struct {
	Type string       `json:"type"`
	Data *webhookBody `json:"data"`
	webhookBody
}

// outcome is a gateway-reported order result, from a webhook or a poll.
type outcome struct {
	OrderID    string
	Status     string
	PaymentRef *string
	PaidAmount string
	Payload    string
}

// parseWebhook accepts the payload with or without the data envelope.
func parseWebhook(body []byte) (*outcome, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env webhookEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", domain.ErrValidation)
	}
	wb := env.webhookBody
	if env.Data != nil {
		wb = *env.Data
	}
	if strings.TrimSpace(wb.Order.OrderID) == "" {
		return nil, fmt.Errorf("%w: webhook payload has no order id", domain.ErrValidation)
	}

	out := &outcome{
		OrderID: strings.TrimSpace(wb.Order.OrderID),
		Status:  strings.ToUpper(strings.TrimSpace(wb.Order.OrderStatus)),
		Payload: string(body),
	}
	if out.Status == "" {
		out.Status = statusFromPayment(wb.Payment.PaymentStatus)
	}
	if ref := paymentRef(wb.Payment.CfPaymentID); ref != "" {
		out.PaymentRef = &ref
	}
	out.PaidAmount = wb.Payment.PaymentAmount.String()
	if out.PaidAmount == "" {
		out.PaidAmount = wb.Order.OrderAmount.String()
	}
	return out, nil
}

func statusFromPayment(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS":
		return "PAID"
	case "FAILED", "USER_DROPPED", "CANCELLED":
		return "FAILED"
	default:
		return "ACTIVE"
	}
}

// cf_payment_id arrives as a number or a string depending on API version.
func paymentRef(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}

type resolution int

const (
	resolvePending resolution = iota
	resolvePaid
	resolveFailed
)

func resolve(gatewayStatus string) resolution {
	switch strings.ToUpper(gatewayStatus) {
	case "PAID":
		return resolvePaid
	case "FAILED", "CANCELLED", "EXPIRED", "TERMINATED":
		return resolveFailed
	default:
		return resolvePending
	}
}

// amountEqual compares the reported amount with the order amount exactly.
// An empty reported amount is treated as matching.
func amountEqual(reported string, expected float64) bool {
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return true
	}
	got, err := decimal.NewFromString(reported)
	if err != nil {
		return false
	}
	return got.Equal(decimal.NewFromFloat(expected).Round(2))
}

func parseAmount(s string) *float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	v, _ := d.Round(2).Float64()
	return &v
}
