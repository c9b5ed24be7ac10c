// Package memstore keeps every aggregate in process memory behind the same
// repository interfaces the gorm layer implements. It backs STORE_DRIVER=memory
// and the service tests.
//
// Each Mutate call holds a per-resource key lock for the whole read-modify-write;
// the store mutex only guards map access and is never held while callbacks run.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"

	"ticketing/internal/events"
	"ticketing/internal/orders"
	"ticketing/internal/promos"
	"ticketing/internal/reporting"
	"ticketing/internal/seats"
	"ticketing/internal/waitlist"
)

type promoKey struct {
	eventID uuid.UUID
	code    string
}

type Store struct {
	mu    sync.RWMutex
	locks *locker.Locker
	now   func() time.Time

	events      map[uuid.UUID]*events.Event
	ticketTypes map[uuid.UUID]*events.TicketType
	ticketOrder map[uuid.UUID][]uuid.UUID
	promos      map[promoKey]*events.PromoOffer
	promoOrder  map[uuid.UUID][]promoKey

	waitTickets   map[uuid.UUID]*waitlist.Ticket
	waitOrder     map[uuid.UUID][]uuid.UUID
	registrations map[uuid.UUID]*waitlist.Registration

	orders map[uuid.UUID]*orders.Order

	utilization map[string]*reporting.UtilizationRecord
}

func New() *Store {
	return &Store{
		locks:         locker.New(),
		now:           time.Now,
		events:        make(map[uuid.UUID]*events.Event),
		ticketTypes:   make(map[uuid.UUID]*events.TicketType),
		ticketOrder:   make(map[uuid.UUID][]uuid.UUID),
		promos:        make(map[promoKey]*events.PromoOffer),
		promoOrder:    make(map[uuid.UUID][]promoKey),
		waitTickets:   make(map[uuid.UUID]*waitlist.Ticket),
		waitOrder:     make(map[uuid.UUID][]uuid.UUID),
		registrations: make(map[uuid.UUID]*waitlist.Registration),
		orders:        make(map[uuid.UUID]*orders.Order),
		utilization:   make(map[string]*reporting.UtilizationRecord),
	}
}

// SetClock overrides the timestamps stamped on created rows
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) lock(kind string, id uuid.UUID) func() {
	key := kind + ":" + id.String()
	s.locks.Lock(key)
	return func() { _ = s.locks.Unlock(key) }
}

func (s *Store) Events() events.Repository { return &eventRepo{s} }

func (s *Store) Seats() seats.Repository { return &seatRepo{s} }

func (s *Store) Promos() promos.Repository { return &promoRepo{s} }

func (s *Store) Waitlist() waitlist.Repository { return &waitlistRepo{s} }

func (s *Store) Orders() orders.Repository { return &orderRepo{s} }

func (s *Store) Reports() reporting.Repository { return &reportRepo{s} }

// assembleEvent copies an event together with its ticket types and offers. Callers hold mu.
func (s *Store) assembleEvent(e *events.Event) *events.Event {
	cp := *e
	cp.TicketTypes = make([]events.TicketType, 0, len(s.ticketOrder[e.ID]))
	for _, id := range s.ticketOrder[e.ID] {
		cp.TicketTypes = append(cp.TicketTypes, *s.ticketTypes[id].Clone())
	}
	cp.PromoOffers = make([]events.PromoOffer, 0, len(s.promoOrder[e.ID]))
	for _, k := range s.promoOrder[e.ID] {
		cp.PromoOffers = append(cp.PromoOffers, *s.promos[k])
	}
	return &cp
}
