package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/events"
)

type eventRepo struct {
	s *Store
}

func (r *eventRepo) Create(_ context.Context, event *events.Event) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("failed to create event: duplicate id %s", event.ID)
	}

	now := s.now()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	base := *event
	base.TicketTypes = nil
	base.PromoOffers = nil
	s.events[event.ID] = &base

	for i := range event.TicketTypes {
		tt := event.TicketTypes[i].Clone()
		tt.EventID = event.ID
		tt.CreatedAt = now
		s.ticketTypes[tt.ID] = tt
		s.ticketOrder[event.ID] = append(s.ticketOrder[event.ID], tt.ID)
	}
	for i := range event.PromoOffers {
		offer := event.PromoOffers[i]
		offer.EventID = event.ID
		k := promoKey{event.ID, offer.Code}
		s.promos[k] = &offer
		s.promoOrder[event.ID] = append(s.promoOrder[event.ID], k)
	}
	return nil
}

func (r *eventRepo) GetByID(_ context.Context, id uuid.UUID) (*events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}
	return r.s.assembleEvent(e), nil
}

func (r *eventRepo) UpdateStatus(_ context.Context, id uuid.UUID, status events.EventStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return events.ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = r.s.now()
	return nil
}

func (r *eventRepo) GetTicketTypeByID(_ context.Context, id uuid.UUID) (*events.TicketType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tt, ok := r.s.ticketTypes[id]
	if !ok {
		return nil, events.ErrTicketTypeNotFound
	}
	return tt.Clone(), nil
}

func (r *eventRepo) GetTicketTypeByName(_ context.Context, eventID uuid.UUID, name string) (*events.TicketType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range r.s.ticketOrder[eventID] {
		if tt := r.s.ticketTypes[id]; tt.Name == name {
			return tt.Clone(), nil
		}
	}
	return nil, events.ErrTicketTypeNotFound
}

func (r *eventRepo) GetPromoOffer(_ context.Context, eventID uuid.UUID, code string) (*events.PromoOffer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	offer, ok := r.s.promos[promoKey{eventID, code}]
	if !ok {
		return nil, events.ErrPromoOfferNotFound
	}
	cp := *offer
	return &cp, nil
}

func (r *eventRepo) RecomputeAvailableSeats(_ context.Context, eventID uuid.UUID) (int, error) {
	s := r.s
	unlock := s.lock("event", eventID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID]
	if !ok {
		return 0, events.ErrEventNotFound
	}
	booked := 0
	for _, id := range s.ticketOrder[eventID] {
		booked += len(s.ticketTypes[id].BookedSeats)
	}
	e.AvailableSeats = max(e.TotalSeats-booked, 0)
	return e.AvailableSeats, nil
}

func (r *eventRepo) ListBetween(_ context.Context, from, to time.Time) ([]events.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []events.Event
	for _, e := range r.s.events {
		if e.Status == events.EventStatusCancelled || e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		out = append(out, *r.s.assembleEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
