package domain

import "time"

type TenancyStatus string

const (
	TenancyActive TenancyStatus = "ACTIVE"
	TenancyEnded  TenancyStatus = "ENDED"
)

// Tenancy is an active occupancy. At most one ACTIVE row exists per
// (tenant, property); the database enforces it with a partial unique index.
type Tenancy struct {
	ID         int64         `json:"id" gorm:"primaryKey"`
	PropertyID int64         `json:"property_id" gorm:"not null;index"`
	UnitRef    *string       `json:"unit_ref,omitempty" gorm:"type:varchar(32)"`
	TenantID   int64         `json:"tenant_id" gorm:"not null;index"`
	OwnerID    int64         `json:"owner_id" gorm:"not null;index"`
	BookingID  int64         `json:"booking_id" gorm:"not null;index"`
	JoinDate   time.Time     `json:"join_date" gorm:"not null"`
	ExitDate   *time.Time    `json:"exit_date,omitempty"`
	Status     TenancyStatus `json:"status" gorm:"type:varchar(8);not null;default:'ACTIVE'"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (Tenancy) TableName() string { return "tenancies" }
