package agreement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/events"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/storage"
	"pgstay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

type harness struct {
	fx      *testutil.Fixture
	svc     *Service
	cache   *memCache
	mu      sync.Mutex
	emitted []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fx := testutil.NewFixture(t)
	docs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	log := logger.Component(logger.Discard(), "agreement")
	h := &harness{fx: fx, cache: newMemCache()}
	bus := events.NewBus(log)
	bus.Subscribe(events.AgreementSealed, func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.emitted = append(h.emitted, e)
		return nil
	})

	sealer := NewSealer(docs, NewPDFRenderer(), SealerConfig{PublicBaseURL: "https://pgstay.test"})
	h.svc = NewService(fx.Store, sealer, docs, h.cache, bus, time.Hour, log)
	return h
}

func (h *harness) approveBooking(t *testing.T) {
	t.Helper()
	require.NoError(t, h.fx.Store.Bookings().Update(context.Background(), h.fx.Booking.ID,
		map[string]interface{}{"status": domain.BookingApproved}))
}

func (h *harness) signBoth(t *testing.T) *domain.Agreement {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.TenantSign(ctx, h.fx.Tenant.ID, h.fx.Booking.ID, SignInput{SignatureRef: "sig-tenant", IP: "10.0.0.7"})
	require.NoError(t, err)
	a, err := h.svc.OwnerSign(ctx, h.fx.Owner.ID, h.fx.Booking.ID, SignInput{SignatureRef: "sig-owner"})
	require.NoError(t, err)
	return a
}

func TestGetRequiresApprovedBooking(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Get(context.Background(), h.fx.Tenant.ID, h.fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestGetIsLimitedToParties(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	stranger := testutil.SeedUser(t, h.fx.Store, "stranger", domain.RoleTenant, domain.VerificationNone)

	_, err := h.svc.Get(context.Background(), stranger.ID, h.fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	a, err := h.svc.Get(context.Background(), h.fx.Owner.ID, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementRequested, a.Status)

	again, err := h.svc.Get(context.Background(), h.fx.Tenant.ID, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
}

func TestGenerateDraftMovesToDraft(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)

	a, err := h.svc.GenerateDraft(context.Background(), h.fx.Owner.ID, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementDraft, a.Status)
	assert.Len(t, a.ContentHash, 64)
}

func TestSigningBothPartiesSealsAgreement(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()

	first, err := h.svc.TenantSign(ctx, h.fx.Tenant.ID, h.fx.Booking.ID, SignInput{SignatureRef: "sig-tenant", IP: "10.0.0.7"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementDraft, first.Status)
	assert.True(t, first.TenantSigned)
	assert.False(t, first.OwnerSigned)

	status, err := h.svc.Status(ctx, h.fx.Owner.ID, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Empty(t, status.ContentHash)

	a, err := h.svc.OwnerSign(ctx, h.fx.Owner.ID, h.fx.Booking.ID, SignInput{SignatureRef: "sig-owner"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementCompleted, a.Status)
	require.NotNil(t, a.SignedAt)
	assert.Regexp(t, `^[0-9a-f]{64}$`, a.ContentHash)

	data, name, err := h.svc.Download(ctx, h.fx.Tenant.ID, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, a.AgreementNumber+".pdf", name)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), a.ContentHash)

	b, err := h.fx.Store.Bookings().GetByID(ctx, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.True(t, b.AgreementSigned)

	v, err := h.svc.VerifyByHash(ctx, a.ContentHash)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	require.NotNil(t, v.BookingID)
	assert.Equal(t, h.fx.Booking.ID, *v.BookingID)
	assert.False(t, v.Expired)

	byCode, err := h.svc.VerifyByCode(ctx, a.VerificationCode)
	require.NoError(t, err)
	assert.True(t, byCode.Valid)

	h.mu.Lock()
	assert.Len(t, h.emitted, 1)
	h.mu.Unlock()
}

func TestSealedAgreementIsImmutable(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()
	sealed := h.signBoth(t)

	_, err := h.svc.TenantSign(ctx, h.fx.Tenant.ID, h.fx.Booking.ID, SignInput{SignatureRef: "again"})
	assert.ErrorIs(t, err, domain.ErrAgreementSealed)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.svc.GenerateDraft(ctx, h.fx.Owner.ID, h.fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.svc.Seal(ctx, h.fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := h.fx.Store.Agreements().GetByBookingID(ctx, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, sealed.ContentHash, stored.ContentHash)
	assert.Equal(t, sealed.DocumentRef, stored.DocumentRef)
	assert.Equal(t, domain.AgreementCompleted, stored.Status)
}

func TestSameSignerTwiceIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()

	first, err := h.svc.OwnerSign(ctx, h.fx.Owner.ID, h.fx.Booking.ID, SignInput{SignatureRef: "one"})
	require.NoError(t, err)
	second, err := h.svc.OwnerSign(ctx, h.fx.Owner.ID, h.fx.Booking.ID, SignInput{SignatureRef: "two"})
	require.NoError(t, err)

	assert.Equal(t, domain.AgreementDraft, second.Status)
	assert.Equal(t, "one", second.OwnerSignature)
	assert.Equal(t, first.ContentHash, second.ContentHash)
}

func TestTenantCannotSignAsOwner(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	_, err := h.svc.OwnerSign(context.Background(), h.fx.Tenant.ID, h.fx.Booking.ID, SignInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSealRequiresBothSignatures(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()

	_, err := h.svc.TenantSign(ctx, h.fx.Tenant.ID, h.fx.Booking.ID, SignInput{SignatureRef: "sig"})
	require.NoError(t, err)

	_, err = h.svc.Seal(ctx, h.fx.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrSignaturesMissing)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	a, err := h.fx.Store.Agreements().GetByBookingID(ctx, h.fx.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementDraft, a.Status)
	assert.Nil(t, a.SignedAt)
}

func TestVerifyRejectsUnsealedAndUnknown(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()

	draft, err := h.svc.GenerateDraft(ctx, h.fx.Owner.ID, h.fx.Booking.ID)
	require.NoError(t, err)

	v, err := h.svc.VerifyByHash(ctx, draft.ContentHash)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = h.svc.VerifyByHash(ctx, "not-a-hash")
	require.NoError(t, err)
	assert.False(t, v.Valid)

	v, err = h.svc.VerifyByCode(ctx, "ZZZZZZ")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Empty(t, h.cache.data)
}

func TestVerifyServesFromCacheAndRecomputesExpiry(t *testing.T) {
	h := newHarness(t)
	h.approveBooking(t)
	ctx := context.Background()
	a := h.signBoth(t)

	_, err := h.svc.VerifyByCode(ctx, a.VerificationCode)
	require.NoError(t, err)
	require.Contains(t, h.cache.data, "agreement:verify:code:"+a.VerificationCode)

	h.svc.now = func() time.Time { return a.ExpiresAt.Add(24 * time.Hour) }
	v, err := h.svc.VerifyByCode(ctx, a.VerificationCode)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.True(t, v.Expired)
}
