package agreement

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pgstay/internal/domain"
	"pgstay/internal/repository"
	"pgstay/internal/storage"

	"gorm.io/datatypes"
)

type SealerConfig struct {
	PublicBaseURL  string
	DurationMonths int
	Currency       string
}

// Sealer renders agreement documents, stores them and fingerprints the
// stored bytes. It never commits anything itself; callers pass the
// transaction-bound store.
type Sealer struct {
	docs     storage.DocumentStore
	renderer Renderer
	cfg      SealerConfig
	now      func() time.Time
}

func NewSealer(docs storage.DocumentStore, renderer Renderer, cfg SealerConfig) *Sealer {
	if cfg.DurationMonths <= 0 {
		cfg.DurationMonths = 6
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Sealer{docs: docs, renderer: renderer, cfg: cfg, now: time.Now}
}

// Generate renders snapshot, persists the bytes and returns the document
// reference with the hex SHA-256 of exactly what was persisted.
func (s *Sealer) Generate(ctx context.Context, in RenderInput) (string, string, error) {
	in.LookupURL = s.lookupURL(in.Snapshot.VerificationCode)
	data, err := s.renderer.Render(in)
	if err != nil {
		return "", "", err
	}

	kind := "draft"
	if in.Final {
		kind = "final"
	}
	name := fmt.Sprintf("%s-%s.pdf", in.Snapshot.AgreementNumber, kind)
	ref, err := s.docs.Persist(ctx, name, "application/pdf", data)
	if err != nil {
		return "", "", fmt.Errorf("persist agreement: %w", err)
	}

	sum := sha256.Sum256(data)
	return ref, hex.EncodeToString(sum[:]), nil
}

func (s *Sealer) lookupURL(code string) string {
	if s.cfg.PublicBaseURL == "" {
		return ""
	}
	return s.cfg.PublicBaseURL + "/api/v1/agreement/lookup/" + code
}

// Ensure returns the booking's agreement, creating it in status requested
// with a rendered draft when none exists. tx must be transaction-bound and
// booking already locked.
func (s *Sealer) Ensure(ctx context.Context, tx *repository.Store, booking *domain.Booking, unitRef string) (*domain.Agreement, bool, error) {
	existing, err := tx.Agreements().GetByBookingID(ctx, booking.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	if booking.Status != domain.BookingApproved && booking.Status != domain.BookingConfirmed {
		return nil, false, fmt.Errorf("%w: booking is not approved", domain.ErrPreconditionFailed)
	}

	snap, err := s.snapshot(ctx, tx, booking, unitRef)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	ref, hash, err := s.Generate(ctx, RenderInput{Snapshot: *snap, IssuedAt: now})
	if err != nil {
		return nil, false, err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, false, err
	}

	a := &domain.Agreement{
		BookingID:        booking.ID,
		OwnerID:          booking.OwnerID,
		TenantID:         booking.TenantID,
		PropertyID:       booking.PropertyID,
		AgreementNumber:  snap.AgreementNumber,
		VerificationCode: snap.VerificationCode,
		Snapshot:         datatypes.JSON(raw),
		RentAmount:       booking.RentAmount,
		DepositAmount:    booking.DepositAmount,
		MaintenanceAmt:   booking.MaintenanceAmount,
		MoveInDate:       booking.MoveInDate,
		DurationMonths:   snap.DurationMonths,
		DocumentRef:      ref,
		ContentHash:      hash,
		Status:           domain.AgreementRequested,
		ExpiresAt:        snap.ExpiresAt,
	}
	if err := tx.Agreements().Create(ctx, a); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("%w: agreement already exists", domain.ErrConflict)
		}
		return nil, false, err
	}
	return a, true, nil
}

// Finalize re-renders the signed document and hash-seals the agreement.
// Both signatures must already be present.
func (s *Sealer) Finalize(ctx context.Context, tx *repository.Store, a *domain.Agreement) error {
	if a.Sealed() {
		return domain.ErrAgreementSealed
	}
	if !a.OwnerSigned || !a.TenantSigned {
		return domain.ErrSignaturesMissing
	}

	var snap domain.AgreementSnapshot
	if err := json.Unmarshal(a.Snapshot, &snap); err != nil {
		return fmt.Errorf("decode agreement snapshot: %w", err)
	}

	now := s.now()
	ref, hash, err := s.Generate(ctx, RenderInput{
		Snapshot:       snap,
		Final:          true,
		OwnerSignedAt:  a.OwnerSignedAt,
		TenantSignedAt: a.TenantSignedAt,
		IssuedAt:       now,
	})
	if err != nil {
		return err
	}

	if err := tx.Agreements().Update(ctx, a.ID, map[string]interface{}{
		"document_ref": ref,
		"content_hash": hash,
		"status":       domain.AgreementCompleted,
		"signed_at":    now,
	}); err != nil {
		return err
	}
	a.DocumentRef = ref
	a.ContentHash = hash
	a.Status = domain.AgreementCompleted
	a.SignedAt = &now

	return tx.Bookings().Update(ctx, a.BookingID, map[string]interface{}{"agreement_signed": true})
}

// Redraft re-renders the unsigned draft for an agreement that is not sealed.
func (s *Sealer) Redraft(ctx context.Context, tx *repository.Store, a *domain.Agreement) error {
	if a.Sealed() {
		return domain.ErrAgreementSealed
	}
	var snap domain.AgreementSnapshot
	if err := json.Unmarshal(a.Snapshot, &snap); err != nil {
		return fmt.Errorf("decode agreement snapshot: %w", err)
	}
	ref, hash, err := s.Generate(ctx, RenderInput{
		Snapshot:       snap,
		OwnerSignedAt:  a.OwnerSignedAt,
		TenantSignedAt: a.TenantSignedAt,
		IssuedAt:       s.now(),
	})
	if err != nil {
		return err
	}
	if err := tx.Agreements().Update(ctx, a.ID, map[string]interface{}{
		"document_ref": ref,
		"content_hash": hash,
		"status":       domain.AgreementDraft,
	}); err != nil {
		return err
	}
	a.DocumentRef = ref
	a.ContentHash = hash
	a.Status = domain.AgreementDraft
	return nil
}

func (s *Sealer) snapshot(ctx context.Context, tx *repository.Store, b *domain.Booking, unitRef string) (*domain.AgreementSnapshot, error) {
	owner, err := tx.Users().GetByID(ctx, b.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	tenant, err := tx.Users().GetByID(ctx, b.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	prop, err := tx.Properties().GetForSnapshot(ctx, b.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}

	code, err := s.uniqueCode(ctx, tx)
	if err != nil {
		return nil, err
	}

	tenantName := b.TenantName
	if tenantName == "" {
		tenantName = tenant.Name
	}
	tenantPhone := b.Phone
	if tenantPhone == "" {
		tenantPhone = tenant.Phone
	}

	return &domain.AgreementSnapshot{
		AgreementNumber:   fmt.Sprintf("AGR-%d-%d", s.now().Year(), b.ID),
		VerificationCode:  code,
		BookingID:         b.ID,
		OwnerName:         owner.Name,
		OwnerPhone:        owner.Phone,
		OwnerEmail:        owner.Email,
		TenantName:        tenantName,
		TenantPhone:       tenantPhone,
		TenantEmail:       tenant.Email,
		PropertyName:      prop.Name,
		PropertyAddress:   prop.Address,
		PropertyCity:      prop.City,
		RoomType:          b.RoomType,
		UnitRef:           unitRef,
		RentAmount:        b.RentAmount,
		DepositAmount:     b.DepositAmount,
		MaintenanceAmount: b.MaintenanceAmount,
		Currency:          s.cfg.Currency,
		MoveInDate:        b.MoveInDate,
		DurationMonths:    s.cfg.DurationMonths,
		ExpiresAt:         b.MoveInDate.AddDate(0, s.cfg.DurationMonths, 0),
	}, nil
}

// uniqueCode draws a 6-character printed verification code not yet in use.
func (s *Sealer) uniqueCode(ctx context.Context, tx *repository.Store) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := newVerificationCode()
		if err != nil {
			return "", err
		}
		_, err = tx.Agreements().GetByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: could not allocate verification code", domain.ErrConflict)
}

func newVerificationCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
