package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pgstay/internal/config"
	"pgstay/internal/domain"
	"pgstay/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url string, timeout time.Duration) *CashfreeClient {
	return NewCashfreeClient(config.CashfreeConfig{
		BaseURL:      url,
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		APIVersion:   "2023-08-01",
		Timeout:      timeout,
	}, logger.Component(logger.Discard(), "gateway"))
}

func TestCashfreeCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pg/orders", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "app-secret", r.Header.Get("x-client-secret"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "order_1_100", body["order_id"])
		assert.Equal(t, 15500.0, body["order_amount"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cf_order_id":"2149460581","order_id":"order_1_100","order_status":"ACTIVE","order_amount":15500.00,"payment_session_id":"session_xyz"}`))
	}))
	defer srv.Close()

	o, err := newClient(srv.URL, time.Second).CreateOrder(context.Background(), GatewayOrderRequest{
		OrderID:       "order_1_100",
		Amount:        15500,
		Currency:      "INR",
		CustomerID:    "user_1",
		CustomerPhone: "+919800000000",
	})
	require.NoError(t, err)
	assert.Equal(t, "session_xyz", o.PaymentSessionID)
	assert.Equal(t, "ACTIVE", o.Status)
	assert.Equal(t, "15500.00", o.Amount)
}

func TestCashfreeFetchOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pg/orders/order_1_100", r.URL.Path)
		_, _ = w.Write([]byte(`{"order_id":"order_1_100","order_status":"paid","order_amount":15500}`))
	}))
	defer srv.Close()

	o, err := newClient(srv.URL, time.Second).FetchOrder(context.Background(), "order_1_100")
	require.NoError(t, err)
	assert.Equal(t, "PAID", o.Status)
	assert.Equal(t, "15500", o.Amount)
}

func TestCashfreeErrorsMapToGatewayUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream down"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, time.Second).FetchOrder(context.Background(), "order_1_100")
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestCashfreeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newClient(srv.URL, 50*time.Millisecond).CreateOrder(context.Background(), GatewayOrderRequest{OrderID: "order_1_1"})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(srv.URL, time.Second)
	for i := 0; i < 8; i++ {
		_, err := c.FetchOrder(context.Background(), "order_1_1")
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	}
	assert.Equal(t, 5, calls)
}
