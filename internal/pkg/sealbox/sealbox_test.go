package sealbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	box := New("payout-key")

	sealed, err := box.Seal("50100012345678")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "50100012345678")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "50100012345678", plain)
}

func TestOpenWithWrongKey(t *testing.T) {
	sealed, err := New("a").Seal("secret")
	require.NoError(t, err)

	_, err = New("b").Open(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = New("a").Open("not-base64!")
	assert.ErrorIs(t, err, ErrOpen)
}
