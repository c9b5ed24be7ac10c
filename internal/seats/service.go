package seats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/events"
	"ticketing/internal/shared/constants"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"
)

// Service is the seat ledger: the only path that changes a ticket type's booked seats.
type Service interface {
	SetCacheService(cacheService cache.Service)
	SetCacheTTL(ttl time.Duration)
	SetClock(now func() time.Time)
	// Reserve books every requested seat or none of them and returns the booking id
	Reserve(ctx context.Context, req ReserveRequest) (uuid.UUID, error)
	// Release frees all seats tagged with bookingID. Releasing twice frees nothing the second time.
	Release(ctx context.Context, ticketTypeID, bookingID uuid.UUID) (int, error)
	SeatMap(ctx context.Context, ticketTypeID uuid.UUID) (*SeatMap, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	cacheTTL     time.Duration
	now          func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo:     repo,
		cacheTTL: constants.TTL_SEAT_MAP,
		now:      time.Now,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// SetCacheTTL overrides how long seat maps stay cached
func (s *service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) Reserve(ctx context.Context, req ReserveRequest) (uuid.UUID, error) {
	bookingID := req.BookingID
	if bookingID == uuid.Nil {
		bookingID = uuid.New()
	}

	var eventID uuid.UUID
	start := time.Now()
	err := s.repo.MutateTicketType(ctx, req.TicketTypeID, func(tt *events.TicketType) error {
		defer metrics.ObserveCriticalSection("ticket_type", start)
		eventID = tt.EventID

		if err := checkReservation(tt, req.Seats, s.now()); err != nil {
			return err
		}

		for _, seat := range req.Seats {
			tt.BookedSeats = append(tt.BookedSeats, events.BookedSeat{
				ID:           uuid.New(),
				TicketTypeID: tt.ID,
				Row:          seat.Row,
				Column:       seat.Column,
				BookingID:    bookingID,
			})
		}
		if tt.IsFull() {
			tt.Status = events.TicketTypeSoldOut
		}
		return nil
	})

	metrics.SeatReservation(metrics.Outcome(err))
	if err != nil {
		if errors.Is(err, ErrAlreadyBooked) || errors.Is(err, ErrCapacityExceeded) {
			logger.GetDefault().LogSeatConflict(ctx, req.TicketTypeID.String(), err)
		}
		return uuid.Nil, err
	}

	s.invalidate(ctx, req.TicketTypeID, eventID)
	return bookingID, nil
}

// checkReservation verifies a request against the locked ticket type without mutating it
func checkReservation(tt *events.TicketType, seats []Seat, now time.Time) error {
	if len(seats) == 0 {
		return seatError(ErrNoSeats, tt, nil)
	}
	if tt.Status.IsClosed() || !tt.InSaleWindow(now) {
		return seatError(ErrNotOnSale, tt, nil)
	}

	for i := range seats {
		seat := seats[i]
		if seat.Row < 1 || seat.Row > tt.Rows || seat.Column < 1 || seat.Column > tt.Columns {
			return seatError(ErrOutOfRange, tt, &seat)
		}
	}

	if len(seats) > tt.Remaining() {
		return seatError(ErrCapacityExceeded, tt, nil)
	}

	taken := make(map[Seat]struct{}, len(tt.BookedSeats)+len(seats))
	for _, bs := range tt.BookedSeats {
		taken[Seat{Row: bs.Row, Column: bs.Column}] = struct{}{}
	}
	for i := range seats {
		seat := seats[i]
		if _, ok := taken[seat]; ok {
			return seatError(ErrAlreadyBooked, tt, &seat)
		}
		taken[seat] = struct{}{}
	}
	return nil
}

func (s *service) Release(ctx context.Context, ticketTypeID, bookingID uuid.UUID) (int, error) {
	var (
		released int
		eventID  uuid.UUID
	)
	start := time.Now()
	err := s.repo.MutateTicketType(ctx, ticketTypeID, func(tt *events.TicketType) error {
		defer metrics.ObserveCriticalSection("ticket_type", start)
		eventID = tt.EventID

		kept := tt.BookedSeats[:0:0]
		for _, bs := range tt.BookedSeats {
			if bs.BookingID == bookingID {
				released++
				continue
			}
			kept = append(kept, bs)
		}
		if released == 0 {
			return nil
		}
		tt.BookedSeats = kept

		if tt.Status == events.TicketTypeSoldOut && !tt.IsFull() {
			if tt.SaleEnded(s.now()) {
				tt.Status = events.TicketTypeExpired
			} else {
				tt.Status = events.TicketTypeActive
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		metrics.SeatsReleased(released)
		s.invalidate(ctx, ticketTypeID, eventID)
	}
	return released, nil
}

func (s *service) SeatMap(ctx context.Context, ticketTypeID uuid.UUID) (*SeatMap, error) {
	load := func() (interface{}, error) {
		tt, err := s.repo.GetTicketType(ctx, ticketTypeID)
		if err != nil {
			return nil, err
		}
		return newSeatMap(tt), nil
	}

	if s.cacheService == nil {
		data, err := load()
		if err != nil {
			return nil, err
		}
		return data.(*SeatMap), nil
	}

	var seatMap SeatMap
	if err := s.cacheService.GetOrLoad(ctx, constants.BuildSeatMapKey(ticketTypeID.String()), s.cacheTTL, load, &seatMap); err != nil {
		return nil, err
	}
	return &seatMap, nil
}

func (s *service) invalidate(ctx context.Context, ticketTypeID, eventID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	err := s.cacheService.Delete(ctx,
		constants.BuildSeatMapKey(ticketTypeID.String()),
		constants.BuildEventDetailKey(eventID.String()))
	if err != nil {
		logger.GetDefault().WarnContext(ctx, "Failed to invalidate seat cache",
			slog.String("ticket_type_id", ticketTypeID.String()),
			slog.String("error", err.Error()))
	}
}
