package domain

import "time"

type UserRole string

const (
	RoleTenant UserRole = "tenant"
	RoleOwner  UserRole = "owner"
	RoleAdmin  UserRole = "admin"
)

type VerificationStatus string

const (
	VerificationNone     VerificationStatus = "none"
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// User is the internal record behind an external identity.
type User struct {
	ID                 int64              `json:"id" gorm:"primaryKey"`
	ExternalUID        string             `json:"-" gorm:"type:varchar(128);uniqueIndex;not null"`
	Email              string             `json:"email,omitempty" gorm:"type:varchar(255)"`
	Name               string             `json:"name" gorm:"type:varchar(120)"`
	Phone              string             `json:"phone,omitempty" gorm:"type:varchar(32)"`
	Role               UserRole           `json:"role" gorm:"type:varchar(16);not null;default:'tenant'"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(16);not null;default:'none'"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsVerifiedOwner() bool {
	return u.VerificationStatus == VerificationVerified
}

// Property is a listing. Listing management lives elsewhere; only the fields a
// booking snapshots are kept here.
type Property struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	OwnerID           int64     `json:"owner_id" gorm:"not null;index"`
	Name              string    `json:"name" gorm:"type:varchar(200);not null"`
	Address           string    `json:"address" gorm:"type:text"`
	City              string    `json:"city" gorm:"type:varchar(120)"`
	RentAmount        float64   `json:"rent_amount" gorm:"type:decimal(12,2);not null;default:0"`
	DepositAmount     float64   `json:"deposit_amount" gorm:"type:decimal(12,2);not null;default:0"`
	MaintenanceAmount float64   `json:"maintenance_amount" gorm:"type:decimal(12,2);not null;default:0"`
	IsDeleted         bool      `json:"-" gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Property) TableName() string { return "properties" }

// OwnerPayoutAccount holds where settlements are sent. AccountNumberSealed is
// encrypted; only the last four digits are stored in clear.
type OwnerPayoutAccount struct {
	ID                  int64     `json:"id" gorm:"primaryKey"`
	OwnerID             int64     `json:"owner_id" gorm:"uniqueIndex;not null"`
	AccountHolder       string    `json:"account_holder" gorm:"type:varchar(120);not null"`
	AccountNumberSealed string    `json:"-" gorm:"type:text;not null"`
	AccountLast4        string    `json:"account_last4" gorm:"column:account_last4;type:varchar(4);not null"`
	IFSC                string    `json:"ifsc" gorm:"column:ifsc;type:varchar(16);not null"`
	BankName            string    `json:"bank_name" gorm:"type:varchar(120)"`
	Branch              string    `json:"branch,omitempty" gorm:"type:varchar(120)"`
	UPIID               string    `json:"upi_id,omitempty" gorm:"column:upi_id;type:varchar(120)"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (OwnerPayoutAccount) TableName() string { return "owner_payout_accounts" }
