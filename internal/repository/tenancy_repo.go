package repository

import (
	"context"
	"time"

	"pgstay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TenancyRepository struct {
	db *gorm.DB
}

func (r *TenancyRepository) GetActive(ctx context.Context, tenantID, propertyID int64) (*domain.Tenancy, error) {
	var t domain.Tenancy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND property_id = ? AND status = ?", tenantID, propertyID, domain.TenancyActive).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// InsertActive inserts t unless an ACTIVE tenancy for the same tenant and
// property already exists. The partial unique index decides, so two racing
// callers cannot both insert. It reports whether t was written.
func (r *TenancyRepository) InsertActive(ctx context.Context, t *domain.Tenancy) (bool, error) {
	t.Status = domain.TenancyActive
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *TenancyRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Tenancy, error) {
	var t domain.Tenancy
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TenancyRepository) End(ctx context.Context, id int64, exitDate, endedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Tenancy{}).
		Where("id = ? AND status = ?", id, domain.TenancyActive).
		Updates(map[string]interface{}{
			"status":     domain.TenancyEnded,
			"exit_date":  exitDate,
			"ended_at":   endedAt,
			"updated_at": endedAt,
		}).Error
}

func (r *TenancyRepository) ListActiveByOwner(ctx context.Context, ownerID int64) ([]domain.Tenancy, error) {
	var out []domain.Tenancy
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status = ?", ownerID, domain.TenancyActive).
		Order("join_date DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *TenancyRepository) ListActiveByTenant(ctx context.Context, tenantID int64) ([]domain.Tenancy, error) {
	var out []domain.Tenancy
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, domain.TenancyActive).
		Order("join_date DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *TenancyRepository) CountByBooking(ctx context.Context, bookingID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Tenancy{}).Where("booking_id = ?", bookingID).Count(&n).Error
	return n, err
}
