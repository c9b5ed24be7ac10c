package seats

import (
	"fmt"

	"github.com/google/uuid"

	"ticketing/internal/events"
)

// Seat is a 1-based (row, column) coordinate within a ticket type's grid
type Seat struct {
	Row    int `json:"row" binding:"required,min=1"`
	Column int `json:"column" binding:"required,min=1"`
}

func (s Seat) String() string {
	return fmt.Sprintf("(%d,%d)", s.Row, s.Column)
}

// ReserveRequest asks for a set of seats on one ticket type. A nil BookingID gets a fresh one.
type ReserveRequest struct {
	TicketTypeID uuid.UUID
	Seats        []Seat
	BookingID    uuid.UUID
}

// SeatMap is the read model of a ticket type's grid
type SeatMap struct {
	TicketTypeID uuid.UUID               `json:"ticket_type_id"`
	EventID      uuid.UUID               `json:"event_id"`
	Name         string                  `json:"name"`
	Rows         int                     `json:"rows"`
	Columns      int                     `json:"columns"`
	Quantity     int                     `json:"quantity"`
	Remaining    int                     `json:"remaining"`
	Status       events.TicketTypeStatus `json:"status"`
	Booked       []Seat                  `json:"booked"`
}

func newSeatMap(tt *events.TicketType) *SeatMap {
	booked := make([]Seat, 0, len(tt.BookedSeats))
	for _, bs := range tt.BookedSeats {
		booked = append(booked, Seat{Row: bs.Row, Column: bs.Column})
	}
	return &SeatMap{
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		Name:         tt.Name,
		Rows:         tt.Rows,
		Columns:      tt.Columns,
		Quantity:     tt.Quantity,
		Remaining:    tt.Remaining(),
		Status:       tt.Status,
		Booked:       booked,
	}
}
