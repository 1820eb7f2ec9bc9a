package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Persist(context.Background(), "agreement 12.pdf", "application/pdf", []byte("%PDF-1.3 body"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, "_agreement-12.pdf"))

	data, err := store.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3 body"), data)
}

func TestLocalStoreFetchMissingAndTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Fetch(context.Background(), "2026/01/01/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Fetch(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestObjectKeyIsDatedAndUnique(t *testing.T) {
	now := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	a := objectKey(now, "x.pdf")
	b := objectKey(now, "x.pdf")
	assert.True(t, strings.HasPrefix(a, "2026/03/09/"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(objectKey(now, "///"), "_document"))
}
