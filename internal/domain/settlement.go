package domain

import "time"

// PendingSettlement is a confirmed booking whose owner has not been paid out.
type PendingSettlement struct {
	BookingID     int64     `json:"booking_id"`
	PropertyID    int64     `json:"property_id"`
	PropertyName  string    `json:"property_name"`
	OwnerID       int64     `json:"owner_id"`
	OwnerName     string    `json:"owner_name"`
	OwnerPhone    string    `json:"owner_phone,omitempty"`
	TenantName    string    `json:"tenant_name"`
	OwnerAmount   float64   `json:"owner_amount"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
	AccountHolder *string   `json:"account_holder,omitempty"`
	AccountSealed *string   `json:"-"`
	AccountNumber string    `json:"account_number,omitempty"`
	AccountLast4  *string   `json:"account_last4,omitempty" gorm:"column:account_last4"`
	IFSC          *string   `json:"ifsc,omitempty" gorm:"column:ifsc"`
	BankName      *string   `json:"bank_name,omitempty"`
	UPIID         *string   `json:"upi_id,omitempty" gorm:"column:upi_id"`
	PayoutReady   bool      `json:"payout_ready"`
}

type SettlementRecord struct {
	BookingID      int64            `json:"booking_id"`
	OwnerID        int64            `json:"owner_id"`
	OwnerName      string           `json:"owner_name"`
	PropertyName   string           `json:"property_name"`
	OwnerAmount    float64          `json:"owner_amount"`
	Status         SettlementStatus `json:"owner_settlement"`
	SettlementDate *time.Time       `json:"settlement_date,omitempty"`
}

type FinanceSummary struct {
	TotalReceived   float64 `json:"total_received"`
	PendingPayout   float64 `json:"pending_payout"`
	SettledPayout   float64 `json:"settled_payout"`
	TodayCollection float64 `json:"today_collection"`
	PaidOrders      int64   `json:"paid_orders"`
}
