package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"github.com/shopspring/decimal"

	"ticketing/internal/events"
	"ticketing/internal/promos"
	"ticketing/internal/seats"
	"ticketing/internal/shared/ref"
	"ticketing/internal/waitlist"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"
)

// Catalog is the event catalog as seen by the reservation service
type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error)
	GetTicketType(ctx context.Context, eventID uuid.UUID, name string) (*events.TicketType, error)
	RecomputeAvailableSeats(ctx context.Context, eventID uuid.UUID) (int, error)
}

type SeatLedger interface {
	Reserve(ctx context.Context, req seats.ReserveRequest) (uuid.UUID, error)
	Release(ctx context.Context, ticketTypeID, bookingID uuid.UUID) (int, error)
}

type WaitlistPool interface {
	FindTicket(ctx context.Context, eventID uuid.UUID, name string) (*waitlist.Ticket, error)
	Take(ctx context.Context, ticketID uuid.UUID, quantity int) (bool, error)
	Restore(ctx context.Context, ticketID uuid.UUID, quantity int) error
	AnnounceSoldOut(ctx context.Context, eventID, ticketID uuid.UUID)
	MarkFulfilled(ctx context.Context, userID, eventID, orderID uuid.UUID) error
}

type PromoLedger interface {
	Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*events.PromoOffer, error)
	Redeem(ctx context.Context, eventID uuid.UUID, code string, total decimal.Decimal) (decimal.Decimal, error)
	Unredeem(ctx context.Context, eventID uuid.UUID, code string) error
}

// Service orchestrates the order lifecycle: create (confirmed or rejected) and one-way cancel.
type Service interface {
	SetClock(now func() time.Time)
	CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error)
	CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*Order, error)
	GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin, expand bool) (*OrderView, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, query ListOrdersQuery) (*PaginatedOrders, error)
}

type service struct {
	repo     Repository
	catalog  Catalog
	seats    SeatLedger
	waitlist WaitlistPool
	promos   PromoLedger
	locks    *locker.Locker
	now      func() time.Time
}

func NewService(repo Repository, catalog Catalog, seatLedger SeatLedger, pool WaitlistPool, promoLedger PromoLedger) Service {
	return &service{
		repo:     repo,
		catalog:  catalog,
		seats:    seatLedger,
		waitlist: pool,
		promos:   promoLedger,
		locks:    locker.New(),
		now:      time.Now,
	}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

// undoFunc reverses one reservation made earlier in the same CreateOrder call
type undoFunc func(ctx context.Context)

// reservedLine is one line held for the order being built. depleted marks the
// waitlist take that emptied its pool.
type reservedLine struct {
	line     OrderLine
	undo     undoFunc
	depleted bool
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error) {
	order, err := s.createOrder(ctx, userID, req)
	if err != nil {
		metrics.OrderOperation("create", metrics.Outcome(err))
		return nil, err
	}
	metrics.OrderOperation("create", "success")
	logger.GetDefault().LogOrderCreated(ctx, order.ID.String(), order.EventID.String(), userID.String(), order.IsWaitlist)
	return order, nil
}

func (s *service) createOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}
	for _, line := range req.Lines {
		if line.IsWaitlist != nil && *line.IsWaitlist != req.IsWaitlist {
			return nil, ErrMixedLines
		}
	}

	event, err := s.catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status != events.EventStatusPublished {
		return nil, ErrEventNotOnSale
	}

	if req.IsWaitlist {
		key := userID.String() + ":" + event.ID.String()
		s.locks.Lock(key)
		defer s.locks.Unlock(key)

		exists, err := s.repo.HasActiveWaitlistOrder(ctx, userID, event.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateWaitlistOrder
		}
	}

	promoCode, promoNotice, err := s.prevalidatePromo(ctx, event.ID, req)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	var undo []undoFunc
	rollback := func() {
		undoCtx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i](undoCtx)
		}
	}

	lines := make([]OrderLine, 0, len(req.Lines))
	var depleted []uuid.UUID
	total := decimal.Zero
	for i, lr := range req.Lines {
		held, err := s.reserveLine(ctx, event.ID, orderID, lr, req.IsWaitlist)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("line %d (%s): %w", i+1, lr.TicketType, err)
		}
		undo = append(undo, held.undo)
		lines = append(lines, held.line)
		total = total.Add(held.line.Subtotal())
		if held.depleted {
			depleted = append(depleted, *held.line.WaitlistTicketID)
		}
	}

	discount := decimal.Zero
	if promoCode != "" {
		discount, err = s.promos.Redeem(ctx, event.ID, promoCode, total)
		switch {
		case err == nil:
			code := promoCode
			undo = append(undo, func(ctx context.Context) {
				_ = s.promos.Unredeem(ctx, event.ID, code)
			})
		case isPromoRejection(err):
			// Seats are already held; the order proceeds at full price
			promoNotice = err.Error()
			promoCode = ""
			discount = decimal.Zero
		default:
			rollback()
			return nil, err
		}
	}

	order := &Order{
		ID:          orderID,
		UserID:      userID,
		EventID:     event.ID,
		Lines:       lines,
		TotalAmount: total.Sub(discount),
		Discount:    discount,
		Status:      StatusConfirmed,
		PaymentInfo: req.PaymentInfo,
		IsWaitlist:  req.IsWaitlist,
	}
	if promoCode != "" {
		order.PromoCode = &promoCode
	}

	if err := s.repo.Create(ctx, order); err != nil {
		rollback()
		return nil, err
	}

	for _, ticketID := range depleted {
		s.waitlist.AnnounceSoldOut(ctx, event.ID, ticketID)
	}

	if req.IsWaitlist {
		if err := s.waitlist.MarkFulfilled(ctx, userID, event.ID, order.ID); err != nil {
			logger.GetDefault().WarnContext(ctx, "Failed to mark waiting list registration fulfilled",
				slog.String("order_id", order.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	order.PromoNotice = promoNotice
	return order, nil
}

// prevalidatePromo drops an unusable code before any seat is touched
func (s *service) prevalidatePromo(ctx context.Context, eventID uuid.UUID, req CreateOrderRequest) (string, string, error) {
	if req.PromoCode == nil || *req.PromoCode == "" {
		return "", "", nil
	}
	if req.IsWaitlist {
		return "", "promo codes do not apply to waitlist orders", nil
	}

	if _, err := s.promos.Validate(ctx, eventID, *req.PromoCode, s.now()); err != nil {
		if isPromoRejection(err) {
			return "", err.Error(), nil
		}
		return "", "", err
	}
	return *req.PromoCode, "", nil
}

func isPromoRejection(err error) bool {
	var promoErr *promos.PromoError
	return errors.As(err, &promoErr)
}

func (s *service) reserveLine(ctx context.Context, eventID, orderID uuid.UUID, lr LineRequest, isWaitlist bool) (reservedLine, error) {
	if isWaitlist {
		if len(lr.Seats) > 0 {
			return reservedLine{}, ErrWaitlistSeats
		}
		ticket, err := s.waitlist.FindTicket(ctx, eventID, lr.TicketType)
		if err != nil {
			return reservedLine{}, err
		}
		depleted, err := s.waitlist.Take(ctx, ticket.ID, lr.Quantity)
		if err != nil {
			return reservedLine{}, err
		}

		ticketID, qty := ticket.ID, lr.Quantity
		return reservedLine{
			line: OrderLine{
				WaitlistTicketID: &ticketID,
				TicketTypeName:   ticket.Name,
				Quantity:         qty,
				Seats:            []seats.Seat{},
				UnitPrice:        ticket.Price,
				IsWaitlist:       true,
			},
			undo: func(ctx context.Context) {
				if err := s.waitlist.Restore(ctx, ticketID, qty); err != nil {
					logger.GetDefault().ErrorContext(ctx, "Failed to restore waitlist stock",
						slog.String("waitlist_ticket_id", ticketID.String()),
						slog.String("error", err.Error()))
				}
			},
			depleted: depleted,
		}, nil
	}

	tt, err := s.catalog.GetTicketType(ctx, eventID, lr.TicketType)
	if err != nil {
		return reservedLine{}, err
	}
	if lr.Quantity != len(lr.Seats) {
		return reservedLine{}, ErrQuantityMismatch
	}

	if _, err := s.seats.Reserve(ctx, seats.ReserveRequest{
		TicketTypeID: tt.ID,
		Seats:        lr.Seats,
		BookingID:    orderID,
	}); err != nil {
		return reservedLine{}, err
	}

	ticketTypeID := tt.ID
	return reservedLine{
		line: OrderLine{
			TicketTypeID:   &ticketTypeID,
			TicketTypeName: tt.Name,
			Quantity:       lr.Quantity,
			Seats:          append([]seats.Seat(nil), lr.Seats...),
			UnitPrice:      tt.Price,
		},
		undo: func(ctx context.Context) {
			if _, err := s.seats.Release(ctx, ticketTypeID, orderID); err != nil {
				logger.GetDefault().ErrorContext(ctx, "Failed to release seats during rollback",
					slog.String("ticket_type_id", ticketTypeID.String()),
					slog.String("error", err.Error()))
			}
		},
	}, nil
}

func (s *service) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		metrics.OrderOperation("cancel", metrics.Outcome(err))
		return nil, err
	}
	if !isAdmin && order.UserID != requesterID {
		metrics.OrderOperation("cancel", "rejected")
		return nil, ErrForbidden
	}

	updated, err := s.repo.MutateOrder(ctx, orderID, func(o *Order) error {
		if !o.Status.CanBeCancelled() {
			return ErrAlreadyCancelled
		}
		now := s.now()
		o.Status = StatusCancelled
		o.CancelledAt = &now
		return nil
	})
	if errors.Is(err, ErrAlreadyCancelled) {
		// a retried cancel picks up seats an earlier attempt failed to free
		if released, relErr := s.releaseSeats(ctx, order); relErr == nil && released > 0 {
			s.recomputeAvailability(ctx, order.EventID)
			metrics.OrderOperation("cancel", "success")
			logger.GetDefault().LogOrderCancelled(ctx, order.ID.String(), order.EventID.String(), requesterID.String(), released)
			return s.repo.GetByID(ctx, orderID)
		}
	}
	if err != nil {
		metrics.OrderOperation("cancel", metrics.Outcome(err))
		return nil, err
	}

	released, err := s.releaseSeats(ctx, updated)
	if err != nil {
		metrics.OrderOperation("cancel", metrics.Outcome(err))
		return nil, err
	}
	s.recomputeAvailability(ctx, updated.EventID)

	metrics.OrderOperation("cancel", "success")
	logger.GetDefault().LogOrderCancelled(ctx, updated.ID.String(), updated.EventID.String(), requesterID.String(), released)
	return updated, nil
}

// releaseSeats frees the seats still held by a cancelled order.
func (s *service) releaseSeats(ctx context.Context, o *Order) (int, error) {
	released := 0
	for _, line := range o.Lines {
		if line.IsWaitlist || line.TicketTypeID == nil {
			continue
		}
		n, err := s.seats.Release(ctx, *line.TicketTypeID, o.ID)
		released += n
		if err != nil {
			return released, fmt.Errorf("%w: %s: %v", ErrSeatsNotReleased, line.TicketTypeName, err)
		}
	}
	return released, nil
}

func (s *service) recomputeAvailability(ctx context.Context, eventID uuid.UUID) {
	if _, err := s.catalog.RecomputeAvailableSeats(ctx, eventID); err != nil {
		logger.GetDefault().WarnContext(ctx, "Failed to recompute available seats",
			slog.String("event_id", eventID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *service) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin, expand bool) (*OrderView, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != requesterID {
		return nil, ErrForbidden
	}

	view := &OrderView{Order: order, Event: ref.Unresolved[events.Event](order.EventID)}
	if expand {
		event, err := s.catalog.GetEvent(ctx, order.EventID)
		switch {
		case err == nil:
			view.Event = ref.Resolved(order.EventID, *event)
		case errors.Is(err, events.ErrEventNotFound):
		default:
			return nil, err
		}
	}
	return view, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, query ListOrdersQuery) (*PaginatedOrders, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	orders, total, err := s.repo.ListByUser(ctx, userID, query.Page, query.Limit)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []Order{}
	}

	return &PaginatedOrders{
		Orders:     orders,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalCount: total,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}, nil
}
