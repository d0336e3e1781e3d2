package booking

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid booking request")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrPaymentIncomplete = errors.New("payment has not been completed")
	ErrSlotConflict      = errors.New("this time slot is no longer available")
	ErrUpstream          = errors.New("booking could not be completed, please retry")
	ErrInvalidSession    = errors.New("invalid checkout session")
	ErrPayerMismatch     = errors.New("checkout session belongs to another user")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrNotFound          = errors.New("booking not found")
	ErrForbidden         = errors.New("booking belongs to another user")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrTooLateToCancel   = errors.New("booking can no longer be cancelled")
)

// ConflictError is returned when a paid checkout lost its slot to another
// booking. Refunded is false when the compensating refund failed and the
// payment needs manual reconciliation.
type ConflictError struct {
	PaymentIntentID string
	Refunded        bool
}

func (e *ConflictError) Error() string {
	if e.Refunded {
		return fmt.Sprintf("%s: payment %s refunded", ErrSlotConflict, e.PaymentIntentID)
	}
	return fmt.Sprintf("%s: refund of payment %s pending", ErrSlotConflict, e.PaymentIntentID)
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotConflict
}
