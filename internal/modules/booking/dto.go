package booking

type CreateBookingRequest struct {
	Name       string `json:"name" binding:"required" validate:"required,max=120"`
	Phone      string `json:"phone" binding:"required" validate:"required,min=7,max=20"`
	MoveInDate string `json:"move_in_date" binding:"required" validate:"required,datetime=2006-01-02"`
	RoomType   string `json:"room_type" binding:"required" validate:"required,oneof=single double triple shared"`
}

type ConsentRequest struct {
	KYCConsent       bool `json:"kyc_consent"`
	AgreementConsent bool `json:"agreement_consent"`
}

type MoveInStatus struct {
	BookingID       int64  `json:"booking_id"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	KYCCompleted    bool   `json:"kyc_completed"`
	AgreementSigned bool   `json:"agreement_signed"`
	MoveInCompleted bool   `json:"move_in_completed"`
	ReadyForMoveIn  bool   `json:"ready_for_move_in"`
	TenancyActive   bool   `json:"tenancy_active"`
}
