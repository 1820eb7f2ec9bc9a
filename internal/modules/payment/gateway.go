package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pgstay/internal/config"
	"pgstay/internal/domain"
	"pgstay/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CashfreeClient talks to the Cashfree PG orders API. Every call runs under
// a per-call timeout and a circuit breaker; any failure surfaces as
// domain.ErrGatewayUnavailable.
type CashfreeClient struct {
	cfg     config.CashfreeConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

func NewCashfreeClient(cfg config.CashfreeConfig, log *logrus.Entry) *CashfreeClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &CashfreeClient{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cashfree",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5)
		},
		IsSuccessful: func(err error) bool {
			var se *statusError
			// A rejected request says nothing about gateway health.
			if errors.As(err, &se) && se.code < 500 {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from":            from.String(),
				"to":              to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return c
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.code, e.body)
}

type cfCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cfOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type cfCreateOrder struct {
	OrderID         string      `json:"order_id"`
	OrderAmount     float64     `json:"order_amount"`
	OrderCurrency   string      `json:"order_currency"`
	CustomerDetails cfCustomer  `json:"customer_details"`
	OrderMeta       cfOrderMeta `json:"order_meta"`
}

type cfOrder struct {
	OrderID          string      `json:"order_id"`
	OrderStatus      string      `json:"order_status"`
	OrderAmount      json.Number `json:"order_amount"`
	PaymentSessionID string      `json:"payment_session_id"`
}

func (o cfOrder) toGateway() *GatewayOrder {
	return &GatewayOrder{
		OrderID:          o.OrderID,
		PaymentSessionID: o.PaymentSessionID,
		Status:           strings.ToUpper(o.OrderStatus),
		Amount:           o.OrderAmount.String(),
	}
}

func (c *CashfreeClient) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	body := cfCreateOrder{
		OrderID:       req.OrderID,
		OrderAmount:   req.Amount,
		OrderCurrency: req.Currency,
		CustomerDetails: cfCustomer{
			CustomerID:    req.CustomerID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		},
		OrderMeta: cfOrderMeta{ReturnURL: req.ReturnURL},
	}
	var out cfOrder
	if err := c.do(ctx, "create_order", http.MethodPost, "/pg/orders", body, &out); err != nil {
		return nil, err
	}
	if out.PaymentSessionID == "" {
		return nil, fmt.Errorf("%w: gateway returned no payment session", domain.ErrGatewayUnavailable)
	}
	return out.toGateway(), nil
}

func (c *CashfreeClient) FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error) {
	var out cfOrder
	if err := c.do(ctx, "fetch_order", http.MethodGet, "/pg/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return out.toGateway(), nil
}

func (c *CashfreeClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var body io.Reader
		if in != nil {
			raw, err := json.Marshal(in)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-client-id", c.cfg.ClientID)
		req.Header.Set("x-client-secret", c.cfg.ClientSecret)
		req.Header.Set("x-api-version", c.cfg.APIVersion)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 300 {
			return nil, &statusError{code: resp.StatusCode, body: truncate(string(raw), 256)}
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		return nil, dec.Decode(out)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.GatewayLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"operation": op, "path": path}).Error("gateway call failed")
		return fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
