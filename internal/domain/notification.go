package domain

import "time"

type NotificationType string

const (
	NotifBookingCreated    NotificationType = "booking_created"
	NotifBookingApproved   NotificationType = "booking_approved"
	NotifBookingRejected   NotificationType = "booking_rejected"
	NotifPaymentConfirmed  NotificationType = "payment_confirmed"
	NotifPaymentFailed     NotificationType = "payment_failed"
	NotifAgreementSigned   NotificationType = "agreement_signed"
	NotifAgreementSealed   NotificationType = "agreement_completed"
	NotifMoveInCompleted   NotificationType = "move_in_completed"
	NotifTenancyEnded      NotificationType = "tenancy_ended"
	NotifSettlementDone    NotificationType = "settlement_done"
	NotifOwnerVerification NotificationType = "owner_verification"
)

type Notification struct {
	ID        int64            `json:"id" gorm:"primaryKey"`
	UserID    int64            `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Title     string           `json:"title" gorm:"type:varchar(200);not null"`
	Message   string           `json:"message,omitempty" gorm:"type:text"`
	IsRead    bool             `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
