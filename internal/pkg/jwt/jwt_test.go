package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour, "pgstay")

	token, err := svc.GenerateToken("uid-1", "Asha", "asha@example.com", "+919800000000")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := New("one", time.Hour, "pgstay").GenerateToken("uid-1", "", "", "")
	require.NoError(t, err)

	_, err = New("two", time.Hour, "pgstay").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := New("secret", -time.Minute, "pgstay")
	token, err := svc.GenerateToken("uid-1", "", "", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
