package repository

import (
	"context"
	"time"

	"pgstay/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Clauses(forUpdate()).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// GetOwnedForUpdate locks the booking only when ownerID is its owner of
// record. Any mismatch reads as not found.
func (r *BookingRepository) GetOwnedForUpdate(ctx context.Context, id, ownerID int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(forUpdate()).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) ListByTenant(ctx context.Context, tenantID int64) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID int64, status domain.BookingStatus) ([]domain.Booking, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Booking
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *BookingRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConfirmPayment moves an unpaid booking to confirmed and opens its
// settlement entry. It reports false when the booking was already paid.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, id int64, ownerAmount float64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND payment_status <> ?", id, domain.PaymentPaid).
		Updates(map[string]interface{}{
			"status":           domain.BookingConfirmed,
			"payment_status":   domain.PaymentPaid,
			"owner_amount":     ownerAmount,
			"owner_settlement": domain.SettlementPending,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BookingRepository) MarkSettled(ctx context.Context, id int64, at time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{
		"owner_settlement": domain.SettlementDone,
		"settlement_date":  at,
	})
}

func (r *BookingRepository) PendingSettlements(ctx context.Context) ([]domain.PendingSettlement, error) {
	q := `
SELECT b.id AS booking_id, b.property_id, p.name AS property_name,
       b.owner_id, u.name AS owner_name, u.phone AS owner_phone,
       b.tenant_name, b.owner_amount, b.updated_at AS confirmed_at,
       a.account_holder, a.account_number_sealed AS account_sealed, a.account_last4,
       a.ifsc, a.bank_name, a.upi_id
FROM bookings b
JOIN users u ON u.id = b.owner_id
LEFT JOIN properties p ON p.id = b.property_id
LEFT JOIN owner_payout_accounts a ON a.owner_id = b.owner_id
WHERE b.payment_status = ? AND b.owner_settlement = ?
ORDER BY b.id ASC`
	var rows []domain.PendingSettlement
	err := r.db.WithContext(ctx).Raw(q, domain.PaymentPaid, domain.SettlementPending).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].PayoutReady = rows[i].AccountSealed != nil && rows[i].IFSC != nil
	}
	return rows, nil
}

func (r *BookingRepository) SettlementHistory(ctx context.Context, limit int) ([]domain.SettlementRecord, error) {
	q := `
SELECT b.id AS booking_id, b.owner_id, u.name AS owner_name, p.name AS property_name,
       b.owner_amount, b.owner_settlement AS status, b.settlement_date
FROM bookings b
JOIN users u ON u.id = b.owner_id
LEFT JOIN properties p ON p.id = b.property_id
WHERE b.owner_settlement = ?
ORDER BY b.settlement_date DESC
LIMIT ?`
	var rows []domain.SettlementRecord
	err := r.db.WithContext(ctx).Raw(q, domain.SettlementDone, limit).Scan(&rows).Error
	return rows, err
}

type payoutTotals struct {
	PendingPayout float64
	SettledPayout float64
}

func (r *BookingRepository) FinanceSummary(ctx context.Context, dayStart time.Time) (*domain.FinanceSummary, error) {
	var out domain.FinanceSummary

	err := r.db.WithContext(ctx).Raw(`
SELECT COALESCE(SUM(COALESCE(paid_amount, amount)), 0) AS total_received, COUNT(*) AS paid_orders
FROM payment_orders WHERE status = ?`, domain.OrderPaid).Scan(&out).Error
	if err != nil {
		return nil, err
	}

	var today float64
	err = r.db.WithContext(ctx).Raw(`
SELECT COALESCE(SUM(COALESCE(paid_amount, amount)), 0) AS today_collection
FROM payment_orders WHERE status = ? AND paid_at >= ?`, domain.OrderPaid, dayStart).Scan(&today).Error
	if err != nil {
		return nil, err
	}
	out.TodayCollection = today

	var payouts payoutTotals
	err = r.db.WithContext(ctx).Raw(`
SELECT
  COALESCE(SUM(CASE WHEN owner_settlement = ? THEN owner_amount ELSE 0 END), 0) AS pending_payout,
  COALESCE(SUM(CASE WHEN owner_settlement = ? THEN owner_amount ELSE 0 END), 0) AS settled_payout
FROM bookings`, domain.SettlementPending, domain.SettlementDone).Scan(&payouts).Error
	if err != nil {
		return nil, err
	}
	out.PendingPayout = domain.RoundMoney(payouts.PendingPayout)
	out.SettledPayout = domain.RoundMoney(payouts.SettledPayout)
	out.TotalReceived = domain.RoundMoney(out.TotalReceived)
	out.TodayCollection = domain.RoundMoney(out.TodayCollection)
	return &out, nil
}
