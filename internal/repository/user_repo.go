package repository

import (
	"context"
	"strings"
	"time"

	"pgstay/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByExternalUID(ctx context.Context, uid string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).Where("external_uid = ?", uid).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FirstOrCreate returns the user for u.ExternalUID, inserting u when none
// exists. Concurrent first logins converge on the same row.
func (r *UserRepository) FirstOrCreate(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_uid"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return u, true, nil
	}
	existing, err := r.GetByExternalUID(ctx, u.ExternalUID)
	return existing, false, err
}

// PromoteToOwner upgrades a tenant to owner. Owners and admins are left as
// they are; the bool reports whether a row changed.
func (r *UserRepository) PromoteToOwner(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND role = ?", id, domain.RoleTenant).
		Updates(map[string]interface{}{"role": domain.RoleOwner, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *UserRepository) SetVerification(ctx context.Context, id int64, status domain.VerificationStatus) error {
	updates := map[string]interface{}{
		"verification_status": status,
		"updated_at":          time.Now(),
	}
	if status == domain.VerificationVerified {
		updates["verified_at"] = time.Now()
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}
