package domain

import (
	"time"

	"gorm.io/datatypes"
)

type AgreementStatus string

const (
	AgreementRequested AgreementStatus = "requested"
	AgreementDraft     AgreementStatus = "draft"
	AgreementCompleted AgreementStatus = "completed"
)

// Agreement is the tenancy document for one booking. Once completed its
// document and hash never change.
type Agreement struct {
	ID               int64           `json:"id" gorm:"primaryKey"`
	BookingID        int64           `json:"booking_id" gorm:"uniqueIndex;not null"`
	OwnerID          int64           `json:"owner_id" gorm:"not null;index"`
	TenantID         int64           `json:"tenant_id" gorm:"not null;index"`
	PropertyID       int64           `json:"property_id" gorm:"not null"`
	AgreementNumber  string          `json:"agreement_number" gorm:"type:varchar(32);not null"`
	VerificationCode string          `json:"verification_code" gorm:"type:varchar(12);uniqueIndex;not null"`
	Snapshot         datatypes.JSON  `json:"snapshot"`
	RentAmount       float64         `json:"rent_amount" gorm:"type:decimal(12,2);not null"`
	DepositAmount    float64         `json:"deposit_amount" gorm:"type:decimal(12,2);not null"`
	MaintenanceAmt   float64         `json:"maintenance_amount" gorm:"column:maintenance_amount;type:decimal(12,2);not null"`
	MoveInDate       time.Time       `json:"move_in_date" gorm:"not null"`
	DurationMonths   int             `json:"duration_months" gorm:"not null"`
	DocumentRef      string          `json:"document_ref" gorm:"type:varchar(255)"`
	ContentHash      string          `json:"content_hash" gorm:"type:char(64);index"`
	Status           AgreementStatus `json:"status" gorm:"type:varchar(16);not null;default:'requested'"`
	OwnerSigned      bool            `json:"owner_signed" gorm:"not null;default:false"`
	OwnerSignedAt    *time.Time      `json:"owner_signed_at,omitempty"`
	OwnerSignature   string          `json:"-" gorm:"type:text"`
	TenantSigned     bool            `json:"tenant_signed" gorm:"not null;default:false"`
	TenantSignedAt   *time.Time      `json:"tenant_signed_at,omitempty"`
	TenantSignature  string          `json:"-" gorm:"type:text"`
	TenantIP         string          `json:"-" gorm:"column:tenant_ip;type:varchar(64)"`
	SignedAt         *time.Time      `json:"signed_at,omitempty"`
	ExpiresAt        time.Time       `json:"expires_at" gorm:"not null"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Agreement) TableName() string { return "agreements" }

func (a *Agreement) Sealed() bool { return a.Status == AgreementCompleted }

// AgreementSnapshot is what gets frozen into the agreement at creation.
type AgreementSnapshot struct {
	AgreementNumber   string    `json:"agreement_number"`
	VerificationCode  string    `json:"verification_code"`
	BookingID         int64     `json:"booking_id"`
	OwnerName         string    `json:"owner_name"`
	OwnerPhone        string    `json:"owner_phone,omitempty"`
	OwnerEmail        string    `json:"owner_email,omitempty"`
	TenantName        string    `json:"tenant_name"`
	TenantPhone       string    `json:"tenant_phone,omitempty"`
	TenantEmail       string    `json:"tenant_email,omitempty"`
	PropertyName      string    `json:"property_name"`
	PropertyAddress   string    `json:"property_address,omitempty"`
	PropertyCity      string    `json:"property_city,omitempty"`
	RoomType          string    `json:"room_type"`
	UnitRef           string    `json:"unit_ref,omitempty"`
	RentAmount        float64   `json:"rent_amount"`
	DepositAmount     float64   `json:"deposit_amount"`
	MaintenanceAmount float64   `json:"maintenance_amount"`
	Currency          string    `json:"currency"`
	MoveInDate        time.Time `json:"move_in_date"`
	DurationMonths    int       `json:"duration_months"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// AgreementVerification is the public answer to a hash or code lookup. It
// never carries the document body.
type AgreementVerification struct {
	Valid     bool       `json:"valid"`
	BookingID *int64     `json:"booking_id,omitempty"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired,omitempty"`
}
