package booking

import (
	"fmt"

	"pgstay/internal/domain"
)

var (
	ErrAlreadyBooked   = fmt.Errorf("%w: you already have an open booking for this property", domain.ErrConflict)
	ErrOwnProperty     = fmt.Errorf("%w: owners cannot book their own property", domain.ErrForbidden)
	ErrMoveInDate      = fmt.Errorf("%w: move-in date cannot be in the past", domain.ErrValidation)
	ErrConsentRequired = fmt.Errorf("%w: both KYC and agreement consent are required", domain.ErrValidation)
	ErrNotApproved     = fmt.Errorf("%w: booking is not approved yet", domain.ErrPreconditionFailed)
	ErrMoveInNotReady  = fmt.Errorf("%w: booking must be paid with KYC and agreement completed", domain.ErrPreconditionFailed)
)
