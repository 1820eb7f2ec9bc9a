package repository

import (
	"context"

	"pgstay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PayoutAccountRepository struct {
	db *gorm.DB
}

func (r *PayoutAccountRepository) Upsert(ctx context.Context, a *domain.OwnerPayoutAccount) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_holder", "account_number_sealed", "account_last4",
			"ifsc", "bank_name", "branch", "upi_id", "updated_at",
		}),
	}).Create(a).Error
}

func (r *PayoutAccountRepository) GetByOwner(ctx context.Context, ownerID int64) (*domain.OwnerPayoutAccount, error) {
	var a domain.OwnerPayoutAccount
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
