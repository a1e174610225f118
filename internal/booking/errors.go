package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("operation not allowed in current booking state")
	// ErrNoSlotSelected is returned when confirmation is requested before a
	// slot is chosen.  Clients should disable the action using CanConfirm.
	ErrNoSlotSelected = errors.New("please select a parking slot to continue")
	ErrSlotNotFound   = errors.New("slot not found")
	ErrUnknownAddOn   = errors.New("unknown add-on")
	ErrInvalidDate    = errors.New("date must be formatted as YYYY-MM-DD")
	ErrSessionMissing = errors.New("booking session not found")
)

// ConfirmError wraps the failure of the booking write.  The session stays
// ready to confirm when it is returned.
type ConfirmError struct {
	Err error
}

func (e *ConfirmError) Error() string { return fmt.Sprintf("booking not created: %v", e.Err) }

func (e *ConfirmError) Unwrap() error { return e.Err }
