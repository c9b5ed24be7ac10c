package events

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrPromoOfferNotFound = errors.New("promo offer not found")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrNotEventOwner      = errors.New("only the event organizer can manage this event")
	ErrInvalidTransition  = errors.New("invalid event status transition")
)

// ValidationError names the offending field of a rejected event definition
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvent
}
