package repository

import (
	"context"

	"pgstay/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func (r *DeliveryRepository) Create(ctx context.Context, d *domain.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DeliveryRepository) Update(ctx context.Context, d *domain.WebhookDelivery) error {
	return r.db.WithContext(ctx).Model(&domain.WebhookDelivery{}).Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"status":     d.Status,
			"attempts":   d.Attempts,
			"last_error": d.LastError,
		}).Error
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*domain.WebhookDelivery, error) {
	var d domain.WebhookDelivery
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *DeliveryRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]domain.WebhookDelivery, error) {
	var out []domain.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", domain.DeliveryFailed, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *DeliveryRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.WebhookDelivery{}).Where("external_order_id = ?", orderID).Count(&n).Error
	return n, err
}
