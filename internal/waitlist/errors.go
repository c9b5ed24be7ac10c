package waitlist

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotEligible            = errors.New("event still has regular seats available")
	ErrInsufficientStock      = errors.New("insufficient waitlist stock")
	ErrDuplicateWaitlistOrder = errors.New("user already has a waitlist order for this event")
	ErrUnknownOriginalTicket  = errors.New("original ticket type does not exist on event")
	ErrWaitlistTicketNotFound = errors.New("waitlist ticket not found")
	ErrAlreadyRegistered      = errors.New("user is already on the waiting list for this event")
	ErrRegistrationNotFound   = errors.New("waiting list registration not found")
	ErrInvalidQuantity        = errors.New("quantity must be positive")
	ErrInvalidTransition      = errors.New("invalid registration status transition")
	ErrInvalidSpecs           = errors.New("invalid waitlist ticket specs")
)

// StockError names the waitlist ticket a take could not be served from
type StockError struct {
	TicketID  uuid.UUID
	Name      string
	Requested int
	Remaining int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %q requested %d, remaining %d", ErrInsufficientStock, e.Name, e.Requested, e.Remaining)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
