package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pgstay/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, err error, production bool) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, err, production)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body["error"].(map[string]any)
}

func TestFromErrorKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrOnboardingPending, http.StatusForbidden, "ONBOARDING_PENDING"},
		{domain.ErrSignaturesMissing, http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{fmt.Errorf("approve: %w", domain.ErrInvalidTransition), http.StatusConflict, "CONFLICT"},
		{domain.ErrGatewayUnavailable, http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"},
		{domain.ErrAmountMismatch, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		status, e := render(t, tc.err, true)
		assert.Equal(t, tc.status, status, tc.code)
		assert.Equal(t, tc.code, e["code"])
	}
}

func TestFromErrorHidesInternalDetailInProduction(t *testing.T) {
	status, e := render(t, errors.New("pq: connection refused"), true)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", e["code"])
	assert.Equal(t, "internal server error", e["message"])

	_, e = render(t, errors.New("pq: connection refused"), false)
	assert.Equal(t, "pq: connection refused", e["message"])
}
