package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrValidation         = errors.New("validation error")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
)

var (
	ErrOnboardingPending = fmt.Errorf("%w: owner verification is not complete", ErrPreconditionFailed)
	ErrSignaturesMissing = fmt.Errorf("%w: both owner and tenant signatures are required", ErrPreconditionFailed)
	ErrAgreementSealed   = fmt.Errorf("%w: agreement is already completed", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrAmountMismatch    = fmt.Errorf("%w: amount mismatch", ErrValidation)
)

// Kind returns the stable, client-facing code for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOnboardingPending):
		return "ONBOARDING_PENDING"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrPreconditionFailed):
		return "PRECONDITION_FAILED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrGatewayUnavailable):
		return "GATEWAY_UNAVAILABLE"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}
