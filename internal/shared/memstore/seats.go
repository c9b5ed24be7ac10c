package memstore

import (
	"context"

	"github.com/google/uuid"

	"ticketing/internal/events"
	"ticketing/internal/seats"
)

type seatRepo struct {
	s *Store
}

var _ seats.Repository = (*seatRepo)(nil)

func (r *seatRepo) GetTicketType(_ context.Context, id uuid.UUID) (*events.TicketType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tt, ok := r.s.ticketTypes[id]
	if !ok {
		return nil, seats.ErrTicketTypeNotFound
	}
	return tt.Clone(), nil
}

func (r *seatRepo) MutateTicketType(_ context.Context, id uuid.UUID, fn seats.MutateFunc) error {
	s := r.s
	unlock := s.lock("ticket_type", id)
	defer unlock()

	s.mu.RLock()
	stored, ok := s.ticketTypes[id]
	var tt *events.TicketType
	if ok {
		tt = stored.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return seats.ErrTicketTypeNotFound
	}

	before := len(tt.BookedSeats)
	if err := fn(tt); err != nil {
		return err
	}

	taken := make(map[seats.Seat]struct{}, len(tt.BookedSeats))
	now := s.now()
	for i := range tt.BookedSeats {
		bs := &tt.BookedSeats[i]
		seat := seats.Seat{Row: bs.Row, Column: bs.Column}
		if _, dup := taken[seat]; dup {
			return &seats.SeatError{Kind: seats.ErrAlreadyBooked, TicketTypeID: tt.ID, TicketType: tt.Name, Seat: &seat}
		}
		taken[seat] = struct{}{}
		if bs.CreatedAt.IsZero() {
			bs.CreatedAt = now
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticketTypes[id] = tt
	if e, ok := s.events[tt.EventID]; ok {
		e.AvailableSeats -= len(tt.BookedSeats) - before
	}
	return nil
}
