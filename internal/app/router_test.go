package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pgstay/internal/config"
	"pgstay/internal/database"
	"pgstay/internal/domain"
	"pgstay/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                  "test",
		DatabaseURL:             fmt.Sprintf("file:router_%d?mode=memory&cache=shared", time.Now().UnixNano()),
		JWTSecret:               "router-secret",
		JWTTTL:                  time.Hour,
		IdentityProvider:        "jwt",
		Cashfree:                config.CashfreeConfig{BaseURL: "http://127.0.0.1:1", WebhookSecret: "whsec", Timeout: time.Second},
		PaymentOrderTTL:         30 * time.Minute,
		Currency:                "INR",
		DocumentStore:           "local",
		DocumentDir:             t.TempDir(),
		PublicBaseURL:           "https://pgstay.test",
		AgreementDurationMonths: 6,
		VerifyCacheTTL:          time.Minute,
		PayoutEncryptionKey:     "router-key",
		CORSAllowedOrigins:      []string{"http://localhost:3000"},
	}
	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, database.Migrate(a.DB))
	return a
}

func call(t *testing.T, a *App, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	a.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	w := call(t, a, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, call(t, a, http.MethodGet, "/api/v1/bookings/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, a, http.MethodGet, "/api/v1/admin/settlements/pending", "", "").Code)
}

func TestFirstRequestProvisionsTenant(t *testing.T) {
	a := newApp(t)
	token, err := a.Tokens.GenerateToken("uid-router", "Meera", "meera@example.com", "")
	require.NoError(t, err)

	w := call(t, a, http.MethodGet, "/api/v1/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			UserID int64  `json:"user_id"`
			Role   string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotZero(t, body.Data.UserID)
	assert.Equal(t, "tenant", body.Data.Role)

	assert.Equal(t, http.StatusForbidden, call(t, a, http.MethodGet, "/api/v1/owner/bookings", token, "").Code)
	assert.Equal(t, http.StatusForbidden, call(t, a, http.MethodGet, "/api/v1/admin/finance/summary", token, "").Code)
	assert.Equal(t, http.StatusForbidden, call(t, a, http.MethodPost, "/api/v1/admin/agreements/1/seal", token, "").Code)
}

func TestAdminResealUnknownAgreement(t *testing.T) {
	a := newApp(t)
	require.NoError(t, a.Store.Users().Create(context.Background(), &domain.User{
		ExternalUID: "uid-admin",
		Name:        "Ops",
		Role:        domain.RoleAdmin,
	}))
	token, err := a.Tokens.GenerateToken("uid-admin", "Ops", "", "")
	require.NoError(t, err)

	w := call(t, a, http.MethodPost, "/api/v1/admin/agreements/999/seal", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = call(t, a, http.MethodPost, "/api/v1/admin/agreements/abc/seal", token, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookIsPublic(t *testing.T) {
	a := newApp(t)
	w := call(t, a, http.MethodPost, "/api/v1/payments/webhook", "", `{"data":{}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
}

func TestPublicAgreementLookupUnknown(t *testing.T) {
	a := newApp(t)
	w := call(t, a, http.MethodGet, "/api/v1/agreement/lookup/ABC123", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}
