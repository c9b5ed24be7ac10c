package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/events"
	"ticketing/internal/orders"
	"ticketing/internal/promos"
	"ticketing/internal/seats"
	"ticketing/internal/shared/memstore"
	"ticketing/internal/waitlist"
)

type fixture struct {
	store    *memstore.Store
	svc      orders.Service
	waitlist waitlist.Service
	notices  *noticeRecorder
	event    *events.Event
}

// noticeRecorder counts the sold-out notices the waitlist pool sends.
type noticeRecorder struct {
	mu      sync.Mutex
	soldOut []uuid.UUID
}

func (r *noticeRecorder) NotifyWaitlistOpened(context.Context, uuid.UUID, uuid.UUID, string) (int, error) {
	return 0, nil
}

func (r *noticeRecorder) NotifyWaitlistSoldOut(_ context.Context, _, ticketID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.soldOut = append(r.soldOut, ticketID)
	return 1, nil
}

func (r *noticeRecorder) soldOutCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.soldOut)
}

func newFixture(t *testing.T, status events.EventStatus) *fixture {
	t.Helper()
	store := memstore.New()
	now := time.Now()

	event := &events.Event{
		ID:             uuid.New(),
		Name:           "Harbour Jazz",
		Venue:          "Pier 4",
		Date:           now.Add(72 * time.Hour),
		TotalSeats:     4,
		AvailableSeats: 4,
		Status:         status,
	}
	event.TicketTypes = []events.TicketType{
		{ID: uuid.New(), EventID: event.ID, Name: "Floor", Price: decimal.NewFromInt(50), Quantity: 3, Rows: 1, Columns: 3, Status: events.TicketTypeActive},
		{ID: uuid.New(), EventID: event.ID, Name: "Balcony", Price: decimal.NewFromInt(80), Quantity: 1, Rows: 1, Columns: 2, Status: events.TicketTypeActive},
	}
	event.PromoOffers = []events.PromoOffer{{
		ID:            uuid.New(),
		EventID:       event.ID,
		Name:          "Save ten",
		Code:          "SAVE10",
		DiscountType:  events.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MaxUses:       1,
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		Active:        true,
	}}
	require.NoError(t, store.Events().Create(context.Background(), event))

	return build(store, event)
}

// newSoldOutFixture seeds a fully booked event with two Standing waitlist tickets
func newSoldOutFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()

	event := &events.Event{
		ID:             uuid.New(),
		Name:           "Secret Show",
		Venue:          "Basement",
		Date:           time.Now().Add(48 * time.Hour),
		TotalSeats:     1,
		AvailableSeats: 0,
		Status:         events.EventStatusPublished,
	}
	tt := events.TicketType{ID: uuid.New(), EventID: event.ID, Name: "General", Price: decimal.NewFromInt(30), Quantity: 1, Rows: 1, Columns: 1, Status: events.TicketTypeActive}
	tt.BookedSeats = []events.BookedSeat{{ID: uuid.New(), TicketTypeID: tt.ID, Row: 1, Column: 1, BookingID: uuid.New()}}
	event.TicketTypes = []events.TicketType{tt}
	require.NoError(t, store.Events().Create(context.Background(), event))

	f := build(store, event)
	_, err := f.waitlist.Open(context.Background(), event.ID, uuid.New(), []waitlist.TicketSpec{
		{Name: "Standing", Price: decimal.NewFromInt(25), Quantity: 2, OriginalTicketRef: "General"},
	})
	require.NoError(t, err)
	return f
}

func build(store *memstore.Store, event *events.Event) *fixture {
	catalog := events.NewService(store.Events())
	waitlistService := waitlist.NewService(store.Waitlist(), catalog)
	notices := &noticeRecorder{}
	waitlistService.SetDispatcher(notices)
	svc := orders.NewService(
		store.Orders(),
		catalog,
		seats.NewService(store.Seats()),
		waitlistService,
		promos.NewService(store.Promos()),
	)
	return &fixture{store: store, svc: svc, waitlist: waitlistService, notices: notices, event: event}
}

// flakyLedger fails Release on demand
type flakyLedger struct {
	orders.SeatLedger
	failRelease bool
}

func (l *flakyLedger) Release(ctx context.Context, ticketTypeID, bookingID uuid.UUID) (int, error) {
	if l.failRelease {
		return 0, errors.New("connection reset")
	}
	return l.SeatLedger.Release(ctx, ticketTypeID, bookingID)
}

func (f *fixture) ticketType(t *testing.T, name string) *events.TicketType {
	t.Helper()
	tt, err := f.store.Events().GetTicketTypeByName(context.Background(), f.event.ID, name)
	require.NoError(t, err)
	return tt
}

func (f *fixture) availableSeats(t *testing.T) int {
	t.Helper()
	e, err := f.store.Events().GetByID(context.Background(), f.event.ID)
	require.NoError(t, err)
	return e.AvailableSeats
}

func seatLine(ticketType string, picked ...seats.Seat) orders.LineRequest {
	return orders.LineRequest{TicketType: ticketType, Quantity: len(picked), Seats: picked}
}

func payment() orders.PaymentInfo {
	return orders.PaymentInfo{Method: "card", TransactionID: "txn-1", Currency: "USD"}
}

func TestCreateOrder_ConfirmsSeatOrder(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)
	userID := uuid.New()

	order, err := f.svc.CreateOrder(context.Background(), userID, orders.CreateOrderRequest{
		EventID:     f.event.ID,
		Lines:       []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1}, seats.Seat{Row: 1, Column: 2})},
		PaymentInfo: payment(),
	})

	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmed, order.Status)
	assert.Equal(t, userID, order.UserID)
	assert.True(t, decimal.NewFromInt(100).Equal(order.TotalAmount))
	assert.Equal(t, 2, order.SeatCount())
	assert.Equal(t, 2, f.availableSeats(t))

	for _, bs := range f.ticketType(t, "Floor").BookedSeats {
		assert.Equal(t, order.ID, bs.BookingID)
	}
}

func TestCreateOrder_FailedLineRollsBackEarlierLines(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)

	_, err := f.svc.CreateOrder(context.Background(), uuid.New(), orders.CreateOrderRequest{
		EventID: f.event.ID,
		Lines: []orders.LineRequest{
			seatLine("Floor", seats.Seat{Row: 1, Column: 1}),
			seatLine("Balcony", seats.Seat{Row: 1, Column: 1}, seats.Seat{Row: 1, Column: 2}),
		},
		PaymentInfo: payment(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, seats.ErrCapacityExceeded)
	assert.Contains(t, err.Error(), "line 2 (Balcony)")

	assert.Empty(t, f.ticketType(t, "Floor").BookedSeats)
	assert.Empty(t, f.ticketType(t, "Balcony").BookedSeats)
	assert.Equal(t, 4, f.availableSeats(t))

	list, err := f.svc.ListUserOrders(context.Background(), uuid.New(), orders.ListOrdersQuery{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestCreateOrder_RequestRejections(t *testing.T) {
	yes := true
	tests := []struct {
		name    string
		status  events.EventStatus
		req     func(eventID uuid.UUID) orders.CreateOrderRequest
		wantErr error
	}{
		{
			name:   "no lines",
			status: events.EventStatusPublished,
			req: func(eventID uuid.UUID) orders.CreateOrderRequest {
				return orders.CreateOrderRequest{EventID: eventID}
			},
			wantErr: orders.ErrEmptyLines,
		},
		{
			name:   "mixed waitlist and regular lines",
			status: events.EventStatusPublished,
			req: func(eventID uuid.UUID) orders.CreateOrderRequest {
				line := seatLine("Floor", seats.Seat{Row: 1, Column: 1})
				line.IsWaitlist = &yes
				return orders.CreateOrderRequest{EventID: eventID, Lines: []orders.LineRequest{line}}
			},
			wantErr: orders.ErrMixedLines,
		},
		{
			name:   "draft event",
			status: events.EventStatusDraft,
			req: func(eventID uuid.UUID) orders.CreateOrderRequest {
				return orders.CreateOrderRequest{EventID: eventID, Lines: []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1})}}
			},
			wantErr: orders.ErrEventNotOnSale,
		},
		{
			name:   "quantity does not match seats",
			status: events.EventStatusPublished,
			req: func(eventID uuid.UUID) orders.CreateOrderRequest {
				line := seatLine("Floor", seats.Seat{Row: 1, Column: 1})
				line.Quantity = 2
				return orders.CreateOrderRequest{EventID: eventID, Lines: []orders.LineRequest{line}}
			},
			wantErr: orders.ErrQuantityMismatch,
		},
		{
			name:   "unknown ticket type",
			status: events.EventStatusPublished,
			req: func(eventID uuid.UUID) orders.CreateOrderRequest {
				return orders.CreateOrderRequest{EventID: eventID, Lines: []orders.LineRequest{seatLine("Mezzanine", seats.Seat{Row: 1, Column: 1})}}
			},
			wantErr: events.ErrTicketTypeNotFound,
		},
		{
			name:   "unknown event",
			status: events.EventStatusPublished,
			req: func(uuid.UUID) orders.CreateOrderRequest {
				return orders.CreateOrderRequest{EventID: uuid.New(), Lines: []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1})}}
			},
			wantErr: orders.ErrEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status)
			_, err := f.svc.CreateOrder(context.Background(), uuid.New(), tt.req(f.event.ID))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 4, f.availableSeats(t))
		})
	}
}

func TestCreateOrder_AppliesPromo(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)
	code := "SAVE10"

	order, err := f.svc.CreateOrder(context.Background(), uuid.New(), orders.CreateOrderRequest{
		EventID:     f.event.ID,
		Lines:       []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1}, seats.Seat{Row: 1, Column: 2})},
		PaymentInfo: payment(),
		PromoCode:   &code,
	})

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(order.Discount), "discount %s", order.Discount)
	assert.True(t, decimal.NewFromInt(90).Equal(order.TotalAmount), "total %s", order.TotalAmount)
	require.NotNil(t, order.PromoCode)
	assert.Equal(t, "SAVE10", *order.PromoCode)
	assert.Empty(t, order.PromoNotice)

	offer, err := f.store.Promos().GetOffer(context.Background(), f.event.ID, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, offer.CurrentUses)
}

func TestCreateOrder_UnusablePromoProceedsAtFullPrice(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)
	ctx := context.Background()
	code := "SAVE10"
	unknown := "NOPE"

	_, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID: f.event.ID, Lines: []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1})}, PromoCode: &code,
	})
	require.NoError(t, err)

	exhausted, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID: f.event.ID, Lines: []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 2})}, PromoCode: &code,
	})
	require.NoError(t, err)
	assert.Nil(t, exhausted.PromoCode)
	assert.True(t, exhausted.Discount.IsZero())
	assert.True(t, decimal.NewFromInt(50).Equal(exhausted.TotalAmount))
	assert.Contains(t, exhausted.PromoNotice, promos.ErrPromoExhausted.Error())

	missing, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID: f.event.ID, Lines: []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 3})}, PromoCode: &unknown,
	})
	require.NoError(t, err)
	assert.Contains(t, missing.PromoNotice, promos.ErrPromoNotFound.Error())
}

func TestCreateOrder_ConcurrentSameSeat(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), uuid.New(), orders.CreateOrderRequest{
				EventID: f.event.ID,
				Lines:   []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 2})},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, seats.ErrAlreadyBooked):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, conflicts)
	assert.Len(t, f.ticketType(t, "Floor").BookedSeats, 1)
	assert.Equal(t, 3, f.availableSeats(t))
}

func TestCreateOrder_Waitlist(t *testing.T) {
	f := newSoldOutFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.waitlist.Join(ctx, userID, f.event.ID, "fan@example.com", 1)
	require.NoError(t, err)

	req := orders.CreateOrderRequest{
		EventID:     f.event.ID,
		IsWaitlist:  true,
		Lines:       []orders.LineRequest{{TicketType: "Standing", Quantity: 1}},
		PaymentInfo: payment(),
	}
	order, err := f.svc.CreateOrder(ctx, userID, req)
	require.NoError(t, err)
	assert.True(t, order.IsWaitlist)
	require.Len(t, order.Lines, 1)
	assert.True(t, order.Lines[0].IsWaitlist)
	assert.True(t, decimal.NewFromInt(25).Equal(order.TotalAmount))

	_, err = f.store.Waitlist().GetUnfulfilledRegistration(ctx, userID, f.event.ID)
	assert.ErrorIs(t, err, waitlist.ErrRegistrationNotFound)

	_, err = f.svc.CreateOrder(ctx, userID, req)
	assert.ErrorIs(t, err, orders.ErrDuplicateWaitlistOrder)

	ticket, err := f.waitlist.FindTicket(ctx, f.event.ID, "Standing")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Quantity)

	_, err = f.svc.CancelOrder(ctx, order.ID, userID, false)
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(ctx, userID, req)
	assert.NoError(t, err)
}

func TestCreateOrder_WaitlistRejections(t *testing.T) {
	f := newSoldOutFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID:    f.event.ID,
		IsWaitlist: true,
		Lines:      []orders.LineRequest{{TicketType: "Standing", Quantity: 1, Seats: []seats.Seat{{Row: 1, Column: 1}}}},
	})
	assert.ErrorIs(t, err, orders.ErrWaitlistSeats)

	_, err = f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID:    f.event.ID,
		IsWaitlist: true,
		Lines:      []orders.LineRequest{{TicketType: "Standing", Quantity: 3}},
	})
	assert.ErrorIs(t, err, waitlist.ErrInsufficientStock)

	ticket, err := f.waitlist.FindTicket(ctx, f.event.ID, "Standing")
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.Quantity)
}

func TestCreateOrder_FailedWaitlistOrderDoesNotAnnounceSoldOut(t *testing.T) {
	f := newSoldOutFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID:    f.event.ID,
		IsWaitlist: true,
		Lines: []orders.LineRequest{
			{TicketType: "Standing", Quantity: 2},
			{TicketType: "Standing", Quantity: 1},
		},
		PaymentInfo: payment(),
	})
	assert.ErrorIs(t, err, waitlist.ErrInsufficientStock)

	ticket, err := f.waitlist.FindTicket(ctx, f.event.ID, "Standing")
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.Quantity)
	assert.False(t, ticket.SoldOutNotified)
	assert.Zero(t, f.notices.soldOutCount())

	_, err = f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
		EventID:     f.event.ID,
		IsWaitlist:  true,
		Lines:       []orders.LineRequest{{TicketType: "Standing", Quantity: 2}},
		PaymentInfo: payment(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.notices.soldOutCount())
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("releases seats and recomputes availability", func(t *testing.T) {
		f := newFixture(t, events.EventStatusPublished)
		owner := uuid.New()
		order, err := f.svc.CreateOrder(ctx, owner, orders.CreateOrderRequest{
			EventID: f.event.ID,
			Lines: []orders.LineRequest{
				seatLine("Floor", seats.Seat{Row: 1, Column: 1}),
				seatLine("Balcony", seats.Seat{Row: 1, Column: 2}),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, f.availableSeats(t))

		cancelled, err := f.svc.CancelOrder(ctx, order.ID, owner, false)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Empty(t, f.ticketType(t, "Floor").BookedSeats)
		assert.Empty(t, f.ticketType(t, "Balcony").BookedSeats)
		assert.Equal(t, 4, f.availableSeats(t))

		_, err = f.svc.CancelOrder(ctx, order.ID, owner, false)
		assert.ErrorIs(t, err, orders.ErrAlreadyCancelled)
	})

	t.Run("other users are forbidden but admins are not", func(t *testing.T) {
		f := newFixture(t, events.EventStatusPublished)
		order, err := f.svc.CreateOrder(ctx, uuid.New(), orders.CreateOrderRequest{
			EventID: f.event.ID,
			Lines:   []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 3})},
		})
		require.NoError(t, err)

		_, err = f.svc.CancelOrder(ctx, order.ID, uuid.New(), false)
		assert.ErrorIs(t, err, orders.ErrForbidden)
		assert.Equal(t, 3, f.availableSeats(t))

		_, err = f.svc.CancelOrder(ctx, order.ID, uuid.New(), true)
		assert.NoError(t, err)
	})

	t.Run("failed release keeps the order cancelled and a retry frees the seats", func(t *testing.T) {
		f := newFixture(t, events.EventStatusPublished)
		ledger := &flakyLedger{SeatLedger: seats.NewService(f.store.Seats())}
		catalog := events.NewService(f.store.Events())
		svc := orders.NewService(f.store.Orders(), catalog, ledger,
			waitlist.NewService(f.store.Waitlist(), catalog), promos.NewService(f.store.Promos()))

		owner := uuid.New()
		order, err := svc.CreateOrder(ctx, owner, orders.CreateOrderRequest{
			EventID: f.event.ID,
			Lines:   []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 2})},
		})
		require.NoError(t, err)

		ledger.failRelease = true
		_, err = svc.CancelOrder(ctx, order.ID, owner, false)
		assert.ErrorIs(t, err, orders.ErrSeatsNotReleased)

		stored, err := f.store.Orders().GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCancelled, stored.Status)
		assert.Len(t, f.ticketType(t, "Floor").BookedSeats, 1)

		ledger.failRelease = false
		cancelled, err := svc.CancelOrder(ctx, order.ID, owner, false)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCancelled, cancelled.Status)
		assert.Empty(t, f.ticketType(t, "Floor").BookedSeats)
		assert.Equal(t, 4, f.availableSeats(t))

		_, err = svc.CancelOrder(ctx, order.ID, owner, false)
		assert.ErrorIs(t, err, orders.ErrAlreadyCancelled)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, events.EventStatusPublished)
		_, err := f.svc.CancelOrder(ctx, uuid.New(), uuid.New(), true)
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)
	})
}

func TestGetOrder_ExpandsEvent(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)
	ctx := context.Background()
	owner := uuid.New()

	order, err := f.svc.CreateOrder(ctx, owner, orders.CreateOrderRequest{
		EventID: f.event.ID,
		Lines:   []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: 1})},
	})
	require.NoError(t, err)

	plain, err := f.svc.GetOrder(ctx, order.ID, owner, false, false)
	require.NoError(t, err)
	assert.False(t, plain.Event.IsResolved())
	assert.Equal(t, f.event.ID, plain.Event.ID())

	expanded, err := f.svc.GetOrder(ctx, order.ID, owner, false, true)
	require.NoError(t, err)
	event, ok := expanded.Event.Value()
	require.True(t, ok)
	assert.Equal(t, "Harbour Jazz", event.Name)

	_, err = f.svc.GetOrder(ctx, order.ID, uuid.New(), false, false)
	assert.ErrorIs(t, err, orders.ErrForbidden)
}

func TestListUserOrders_Paginates(t *testing.T) {
	f := newFixture(t, events.EventStatusPublished)
	ctx := context.Background()
	owner := uuid.New()

	for col := 1; col <= 3; col++ {
		_, err := f.svc.CreateOrder(ctx, owner, orders.CreateOrderRequest{
			EventID: f.event.ID,
			Lines:   []orders.LineRequest{seatLine("Floor", seats.Seat{Row: 1, Column: col})},
		})
		require.NoError(t, err)
	}

	page, err := f.svc.ListUserOrders(ctx, owner, orders.ListOrdersQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)

	defaults, err := f.svc.ListUserOrders(ctx, owner, orders.ListOrdersQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 10, defaults.Limit)
	assert.Len(t, defaults.Orders, 3)
}
