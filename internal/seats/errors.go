package seats

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ticketing/internal/events"
)

var (
	ErrOutOfRange         = errors.New("seat out of range")
	ErrAlreadyBooked      = errors.New("seat already booked")
	ErrCapacityExceeded   = errors.New("ticket type capacity exceeded")
	ErrNoSeats            = errors.New("at least one seat is required")
	ErrNotOnSale          = errors.New("ticket type is not on sale")
	ErrTicketTypeNotFound = events.ErrTicketTypeNotFound
)

// SeatError reports a rejected reservation. Kind is one of the sentinels above.
type SeatError struct {
	Kind         error
	TicketTypeID uuid.UUID
	TicketType   string
	Seat         *Seat
}

func (e *SeatError) Error() string {
	if e.Seat != nil {
		return fmt.Sprintf("%s: seat %s of ticket type %q", e.Kind, e.Seat, e.TicketType)
	}
	return fmt.Sprintf("%s: ticket type %q", e.Kind, e.TicketType)
}

func (e *SeatError) Unwrap() error {
	return e.Kind
}

func seatError(kind error, tt *events.TicketType, seat *Seat) *SeatError {
	return &SeatError{Kind: kind, TicketTypeID: tt.ID, TicketType: tt.Name, Seat: seat}
}
