package repository

import (
	"context"

	"pgstay/internal/domain"

	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetByID returns a live property; soft-deleted listings read as missing.
func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	var p domain.Property
	err := r.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PropertyRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Property{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Count(&n).Error
	return n, err
}

// GetForSnapshot also returns soft-deleted listings; documents for past
// bookings still need the property details.
func (r *PropertyRepository) GetForSnapshot(ctx context.Context, id int64) (*domain.Property, error) {
	var p domain.Property
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
