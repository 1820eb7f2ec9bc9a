package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 30*time.Minute, cfg.PaymentOrderTTL)
	assert.Equal(t, 6, cfg.AgreementDurationMonths)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "local", cfg.DocumentStore)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CASHFREE_WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadValidatesEnums(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DOCUMENT_STORE", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")

	t.Setenv("DOCUMENT_STORE", "local")
	t.Setenv("IDENTITY_PROVIDER", "oauth")
	_, err = Load()
	require.Error(t, err)
}

func TestInvalidDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PAYMENT_ORDER_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_ORDER_TTL")
}
