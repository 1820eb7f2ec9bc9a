package repository

import (
	"context"
	"time"

	"pgstay/internal/domain"

	"gorm.io/gorm"
)

type PaymentOrderRepository struct {
	db *gorm.DB
}

func (r *PaymentOrderRepository) Create(ctx context.Context, o *domain.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *PaymentOrderRepository) GetByExternalID(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	if err := r.db.WithContext(ctx).Where("external_order_id = ?", orderID).First(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *PaymentOrderRepository) GetByExternalIDForUpdate(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	err := r.db.WithContext(ctx).Clauses(forUpdate()).Where("external_order_id = ?", orderID).First(&o).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *PaymentOrderRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.PaymentOrder, error) {
	var out []domain.PaymentOrder
	err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("id DESC").Find(&out).Error
	return out, err
}

// LatestPendingByBooking returns the newest pending order for the booking.
func (r *PaymentOrderRepository) LatestPendingByBooking(ctx context.Context, bookingID int64) (*domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, domain.OrderPending).
		Order("id DESC").
		First(&o).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *PaymentOrderRepository) SetSession(ctx context.Context, id int64, sessionToken string) error {
	return r.db.WithContext(ctx).Model(&domain.PaymentOrder{}).Where("id = ?", id).
		Updates(map[string]interface{}{"session_token": sessionToken, "updated_at": time.Now()}).Error
}

// MarkPaid moves a pending or locally failed order to paid.
func (r *PaymentOrderRepository) MarkPaid(ctx context.Context, id int64, paymentRef *string, paidAmount *float64, gatewayStatus, payload string, paidAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.PaymentOrder{}).
		Where("id = ? AND (status = ? OR (status = ? AND failure_reason IN ?))", id,
			domain.OrderPending, domain.OrderFailed,
			[]string{domain.FailureExpired, domain.FailureGatewayUnavailable}).
		Updates(map[string]interface{}{
			"status":               domain.OrderPaid,
			"failure_reason":       "",
			"external_payment_ref": paymentRef,
			"paid_amount":          paidAmount,
			"gateway_status":       gatewayStatus,
			"webhook_payload":      payload,
			"paid_at":              paidAt,
			"updated_at":           paidAt,
		}).Error
}

// MarkFailed moves a pending order to failed. It reports whether the row
// was still pending.
func (r *PaymentOrderRepository) MarkFailed(ctx context.Context, id int64, gatewayStatus, reason, payload string) (bool, error) {
	updates := map[string]interface{}{
		"status":         domain.OrderFailed,
		"gateway_status": gatewayStatus,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	}
	if payload != "" {
		updates["webhook_payload"] = payload
	}
	res := r.db.WithContext(ctx).Model(&domain.PaymentOrder{}).
		Where("id = ? AND status = ?", id, domain.OrderPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpirePending fails every pending order created before cutoff.
func (r *PaymentOrderRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.PaymentOrder{}).
		Where("status = ? AND created_at < ?", domain.OrderPending, cutoff).
		Updates(map[string]interface{}{
			"status":         domain.OrderFailed,
			"failure_reason": domain.FailureExpired,
			"updated_at":     time.Now(),
		})
	return res.RowsAffected, res.Error
}
