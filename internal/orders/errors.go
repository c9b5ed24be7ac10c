package orders

import (
	"errors"

	"ticketing/internal/events"
	"ticketing/internal/waitlist"
)

var (
	ErrEmptyLines       = errors.New("order must contain at least one line")
	ErrOrderNotFound    = errors.New("order not found")
	ErrForbidden        = errors.New("order belongs to another user")
	ErrAlreadyCancelled = errors.New("order is already cancelled")
	ErrQuantityMismatch = errors.New("quantity must equal the number of seats")
	ErrEventNotOnSale   = errors.New("event is not open for orders")
	ErrMixedLines       = errors.New("an order cannot mix waitlist and regular lines")
	ErrWaitlistSeats    = errors.New("waitlist lines cannot select seats")
	ErrSeatsNotReleased = errors.New("order cancelled but seats are still held; retry the cancellation")

	ErrEventNotFound          = events.ErrEventNotFound
	ErrDuplicateWaitlistOrder = waitlist.ErrDuplicateWaitlistOrder
)
