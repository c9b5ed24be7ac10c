package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/waitlist"
)

type waitlistRepo struct {
	s *Store
}

func (r *waitlistRepo) ReplaceTickets(_ context.Context, eventID uuid.UUID, tickets []waitlist.Ticket) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.waitOrder[eventID] {
		delete(s.waitTickets, id)
	}
	ids := make([]uuid.UUID, 0, len(tickets))
	now := s.now()
	for i := range tickets {
		t := tickets[i]
		t.EventID = eventID
		t.CreatedAt = now
		t.UpdatedAt = now
		s.waitTickets[t.ID] = &t
		ids = append(ids, t.ID)
	}
	s.waitOrder[eventID] = ids
	return nil
}

func (r *waitlistRepo) ListTickets(_ context.Context, eventID uuid.UUID) ([]waitlist.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]waitlist.Ticket, 0, len(r.s.waitOrder[eventID]))
	for _, id := range r.s.waitOrder[eventID] {
		out = append(out, *r.s.waitTickets[id])
	}
	return out, nil
}

func (r *waitlistRepo) GetTicket(_ context.Context, id uuid.UUID) (*waitlist.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.waitTickets[id]
	if !ok {
		return nil, waitlist.ErrWaitlistTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *waitlistRepo) MutateTicket(_ context.Context, id uuid.UUID, fn func(t *waitlist.Ticket) error) error {
	s := r.s
	unlock := s.lock("waitlist_ticket", id)
	defer unlock()

	s.mu.RLock()
	stored, ok := s.waitTickets[id]
	var ticket waitlist.Ticket
	if ok {
		ticket = *stored
	}
	s.mu.RUnlock()
	if !ok {
		return waitlist.ErrWaitlistTicketNotFound
	}

	if err := fn(&ticket); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a reopen may have purged the ticket meanwhile
	cur, ok := s.waitTickets[id]
	if !ok {
		return waitlist.ErrWaitlistTicketNotFound
	}
	cur.Quantity = ticket.Quantity
	cur.SoldOutNotified = ticket.SoldOutNotified
	cur.UpdatedAt = s.now()
	return nil
}

func (r *waitlistRepo) CreateRegistration(_ context.Context, reg *waitlist.Registration) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.registrations {
		if existing.UserID == reg.UserID && existing.EventID == reg.EventID && existing.Status.IsUnfulfilled() {
			return waitlist.ErrAlreadyRegistered
		}
	}
	now := s.now()
	reg.CreatedAt = now
	reg.UpdatedAt = now
	cp := copyRegistration(reg)
	s.registrations[reg.ID] = cp
	return nil
}

func (r *waitlistRepo) UpdateRegistration(_ context.Context, reg *waitlist.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg.UpdatedAt = r.s.now()
	r.s.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (r *waitlistRepo) GetUnfulfilledRegistration(_ context.Context, userID, eventID uuid.UUID) (*waitlist.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, reg := range r.s.registrations {
		if reg.UserID == userID && reg.EventID == eventID && reg.Status.IsUnfulfilled() {
			return copyRegistration(reg), nil
		}
	}
	return nil, waitlist.ErrRegistrationNotFound
}

func (r *waitlistRepo) ListUnfulfilled(_ context.Context, eventID uuid.UUID) ([]waitlist.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []waitlist.Registration
	for _, reg := range r.s.registrations {
		if reg.EventID == eventID && reg.Status.IsUnfulfilled() {
			out = append(out, *copyRegistration(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *waitlistRepo) MarkNotified(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range ids {
		reg, ok := r.s.registrations[id]
		if !ok || reg.TransitionTo(waitlist.RegistrationNotified) != nil {
			continue
		}
		notifiedAt := at
		reg.NotifiedAt = &notifiedAt
	}
	return nil
}

func copyRegistration(reg *waitlist.Registration) *waitlist.Registration {
	cp := *reg
	if reg.OrderID != nil {
		id := *reg.OrderID
		cp.OrderID = &id
	}
	if reg.NotifiedAt != nil {
		at := *reg.NotifiedAt
		cp.NotifiedAt = &at
	}
	return &cp
}
