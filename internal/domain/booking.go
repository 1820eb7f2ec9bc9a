package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingConfirmed BookingStatus = "confirmed"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

type SettlementStatus string

const (
	SettlementPending SettlementStatus = "PENDING"
	SettlementDone    SettlementStatus = "DONE"
)

// Booking is a tenant's request to occupy a unit. Rows are never deleted.
type Booking struct {
	ID                int64         `json:"id" gorm:"primaryKey"`
	PropertyID        int64         `json:"property_id" gorm:"not null;index"`
	TenantID          int64         `json:"tenant_id" gorm:"not null;index"`
	OwnerID           int64         `json:"owner_id" gorm:"not null;index"`
	TenantName        string        `json:"tenant_name" gorm:"type:varchar(120)"`
	Phone             string        `json:"phone" gorm:"type:varchar(32)"`
	RoomType          string        `json:"room_type" gorm:"type:varchar(32);not null"`
	MoveInDate        time.Time     `json:"move_in_date" gorm:"not null"`
	RentAmount        float64       `json:"rent_amount" gorm:"type:decimal(12,2);not null;default:0"`
	DepositAmount     float64       `json:"deposit_amount" gorm:"type:decimal(12,2);not null;default:0"`
	MaintenanceAmount float64       `json:"maintenance_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Status            BookingStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	RejectReason      *string       `json:"reject_reason,omitempty" gorm:"type:text"`
	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(16);not null;default:'unpaid'"`
	KYCCompleted      bool          `json:"kyc_completed" gorm:"column:kyc_completed;not null;default:false"`
	AgreementSigned   bool          `json:"agreement_signed" gorm:"not null;default:false"`
	MoveInCompleted   bool          `json:"move_in_completed" gorm:"not null;default:false"`

	// Settlement view, filled when a payment order for this booking is paid.
	OwnerAmount     float64           `json:"owner_amount" gorm:"type:decimal(12,2);not null;default:0"`
	OwnerSettlement *SettlementStatus `json:"owner_settlement,omitempty" gorm:"type:varchar(16);index"`
	SettlementDate  *time.Time        `json:"settlement_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// PayableTotal is what the tenant pays up front and what the owner is owed.
// No platform commission is deducted.
func (b *Booking) PayableTotal() float64 {
	return SumMoney(b.RentAmount, b.DepositAmount, b.MaintenanceAmount)
}

// IsParty reports whether userID is the tenant or owner of record.
func (b *Booking) IsParty(userID int64) bool {
	return userID != 0 && (b.TenantID == userID || b.OwnerID == userID)
}
