package repository

import (
	"context"
	"time"

	"pgstay/internal/domain"

	"gorm.io/gorm"
)

type AgreementRepository struct {
	db *gorm.DB
}

func (r *AgreementRepository) Create(ctx context.Context, a *domain.Agreement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AgreementRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Agreement, error) {
	var a domain.Agreement
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgreementRepository) GetByBookingIDForUpdate(ctx context.Context, bookingID int64) (*domain.Agreement, error) {
	var a domain.Agreement
	err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("booking_id = ?", bookingID).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgreementRepository) GetByHash(ctx context.Context, hash string) (*domain.Agreement, error) {
	var a domain.Agreement
	if err := r.db.WithContext(ctx).Where("content_hash = ?", hash).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgreementRepository) GetByCode(ctx context.Context, code string) (*domain.Agreement, error) {
	var a domain.Agreement
	if err := r.db.WithContext(ctx).Where("verification_code = ?", code).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// Update writes fields on a non-completed agreement. A completed row is
// never touched; that case reports domain.ErrAgreementSealed.
func (r *AgreementRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Agreement{}).
		Where("id = ? AND status <> ?", id, domain.AgreementCompleted).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAgreementSealed
	}
	return nil
}

func (r *AgreementRepository) CountByBooking(ctx context.Context, bookingID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Agreement{}).Where("booking_id = ?", bookingID).Count(&n).Error
	return n, err
}
