package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moby/locker"

	"ticketing/internal/events"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"
)

// Catalog is the slice of the event catalog the waitlist pool reads
type Catalog interface {
	IsEventSoldOut(ctx context.Context, eventID uuid.UUID) (bool, error)
	GetTicketType(ctx context.Context, eventID uuid.UUID, name string) (*events.TicketType, error)
}

// Dispatcher delivers waitlist notifications and reports how many registrations were reached
type Dispatcher interface {
	NotifyWaitlistOpened(ctx context.Context, eventID, waitlistTicketID uuid.UUID, message string) (int, error)
	NotifyWaitlistSoldOut(ctx context.Context, eventID, waitlistTicketID uuid.UUID) (int, error)
}

// Service interface defines the contract for waitlist business operations
type Service interface {
	SetDispatcher(dispatcher Dispatcher)
	SetClock(now func() time.Time)

	// Waitlist pool
	CanOpenWaitlist(ctx context.Context, eventID uuid.UUID) (bool, error)
	Open(ctx context.Context, eventID, createdBy uuid.UUID, specs []TicketSpec) ([]Ticket, error)
	ListTickets(ctx context.Context, eventID uuid.UUID) ([]Ticket, error)
	FindTicket(ctx context.Context, eventID uuid.UUID, name string) (*Ticket, error)
	// Take reports depleted=true on the call that brought stock to zero; the
	// caller announces it with AnnounceSoldOut once its order is durable.
	Take(ctx context.Context, ticketID uuid.UUID, quantity int) (depleted bool, err error)
	// Restore returns stock taken earlier in the same failed order
	Restore(ctx context.Context, ticketID uuid.UUID, quantity int) error
	AnnounceSoldOut(ctx context.Context, eventID, ticketID uuid.UUID)

	// Waiting-list registrations
	Join(ctx context.Context, userID, eventID uuid.UUID, email string, quantity int) (*Registration, error)
	Leave(ctx context.Context, userID, eventID uuid.UUID) error
	ListUnfulfilled(ctx context.Context, eventID uuid.UUID) ([]Registration, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID) error
	MarkFulfilled(ctx context.Context, userID, eventID, orderID uuid.UUID) error
}

// service implements the Service interface
type service struct {
	repo       Repository
	catalog    Catalog
	dispatcher Dispatcher
	locks      *locker.Locker
	validate   *validator.Validate
	now        func() time.Time
}

// NewService creates a new waitlist service
func NewService(repo Repository, catalog Catalog) Service {
	return &service{
		repo:     repo,
		catalog:  catalog,
		locks:    locker.New(),
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *service) SetDispatcher(dispatcher Dispatcher) {
	s.dispatcher = dispatcher
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) CanOpenWaitlist(ctx context.Context, eventID uuid.UUID) (bool, error) {
	return s.catalog.IsEventSoldOut(ctx, eventID)
}

func (s *service) Open(ctx context.Context, eventID, createdBy uuid.UUID, specs []TicketSpec) ([]Ticket, error) {
	if err := s.validate.Struct(OpenWaitlistRequest{Tickets: specs}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpecs, err)
	}

	eligible, err := s.CanOpenWaitlist(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrNotEligible
	}

	tickets := make([]Ticket, 0, len(specs))
	for _, spec := range specs {
		if spec.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price of %q is negative", ErrInvalidSpecs, spec.Name)
		}
		if _, err := s.catalog.GetTicketType(ctx, eventID, spec.OriginalTicketRef); err != nil {
			if errors.Is(err, events.ErrTicketTypeNotFound) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownOriginalTicket, spec.OriginalTicketRef)
			}
			return nil, err
		}
		tickets = append(tickets, Ticket{
			ID:                uuid.New(),
			EventID:           eventID,
			Name:              spec.Name,
			Price:             spec.Price.Round(2),
			Quantity:          spec.Quantity,
			OriginalTicketRef: spec.OriginalTicketRef,
			CreatedBy:         createdBy,
		})
	}

	if err := s.repo.ReplaceTickets(ctx, eventID, tickets); err != nil {
		return nil, err
	}

	recipients := 0
	if s.dispatcher != nil {
		for _, t := range tickets {
			msg := fmt.Sprintf("%d %q waitlist tickets are now available at %s", t.Quantity, t.Name, t.Price.StringFixed(2))
			n, err := s.dispatcher.NotifyWaitlistOpened(ctx, eventID, t.ID, msg)
			if err != nil {
				logger.GetDefault().ErrorContext(ctx, "Failed to notify waitlist opening",
					slog.String("event_id", eventID.String()),
					slog.String("waitlist_ticket_id", t.ID.String()),
					slog.String("error", err.Error()))
			}
			recipients += n
		}
	}

	logger.GetDefault().LogWaitlistOpened(ctx, eventID.String(), len(tickets), recipients)
	return tickets, nil
}

func (s *service) ListTickets(ctx context.Context, eventID uuid.UUID) ([]Ticket, error) {
	return s.repo.ListTickets(ctx, eventID)
}

// FindTicket resolves a waitlist ticket by its own name, then by the ticket type it substitutes for
func (s *service) FindTicket(ctx context.Context, eventID uuid.UUID, name string) (*Ticket, error) {
	tickets, err := s.repo.ListTickets(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].Name == name {
			return &tickets[i], nil
		}
	}
	for i := range tickets {
		if tickets[i].OriginalTicketRef == name {
			return &tickets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrWaitlistTicketNotFound, name)
}

func (s *service) Take(ctx context.Context, ticketID uuid.UUID, quantity int) (bool, error) {
	if quantity < 1 {
		return false, ErrInvalidQuantity
	}

	depleted := false
	start := time.Now()
	err := s.repo.MutateTicket(ctx, ticketID, func(t *Ticket) error {
		defer metrics.ObserveCriticalSection("waitlist_ticket", start)
		if quantity > t.Quantity {
			return &StockError{TicketID: t.ID, Name: t.Name, Requested: quantity, Remaining: t.Quantity}
		}
		t.Quantity -= quantity
		if t.Quantity <= 0 && !t.SoldOutNotified {
			t.SoldOutNotified = true
			depleted = true
		}
		return nil
	})

	metrics.WaitlistTake(metrics.Outcome(err))
	if err != nil {
		return false, err
	}
	return depleted, nil
}

// Restore puts stock back. A depletion that is undone re-arms the sold-out
// notice so the next real depletion is announced.
func (s *service) Restore(ctx context.Context, ticketID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.repo.MutateTicket(ctx, ticketID, func(t *Ticket) error {
		t.Quantity += quantity
		if t.Quantity > 0 {
			t.SoldOutNotified = false
		}
		return nil
	})
}

func (s *service) AnnounceSoldOut(ctx context.Context, eventID, ticketID uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	if _, err := s.dispatcher.NotifyWaitlistSoldOut(ctx, eventID, ticketID); err != nil {
		logger.GetDefault().ErrorContext(ctx, "Failed to notify waitlist sold out",
			slog.String("waitlist_ticket_id", ticketID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *service) Join(ctx context.Context, userID, eventID uuid.UUID, email string, quantity int) (*Registration, error) {
	if quantity < 1 || quantity > MaxQuantityPerUser {
		return nil, ErrInvalidQuantity
	}

	key := registrationKey(userID, eventID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	_, err := s.repo.GetUnfulfilledRegistration(ctx, userID, eventID)
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, ErrRegistrationNotFound) {
		return nil, err
	}

	reg := &Registration{
		ID:       uuid.New(),
		UserID:   userID,
		EventID:  eventID,
		Email:    email,
		Quantity: quantity,
		Status:   RegistrationActive,
		JoinedAt: s.now(),
	}
	if err := s.repo.CreateRegistration(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *service) Leave(ctx context.Context, userID, eventID uuid.UUID) error {
	key := registrationKey(userID, eventID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	reg, err := s.repo.GetUnfulfilledRegistration(ctx, userID, eventID)
	if err != nil {
		return err
	}
	if err := reg.TransitionTo(RegistrationCancelled); err != nil {
		return err
	}
	return s.repo.UpdateRegistration(ctx, reg)
}

func (s *service) ListUnfulfilled(ctx context.Context, eventID uuid.UUID) ([]Registration, error) {
	return s.repo.ListUnfulfilled(ctx, eventID)
}

func (s *service) MarkNotified(ctx context.Context, ids []uuid.UUID) error {
	return s.repo.MarkNotified(ctx, ids, s.now())
}

// MarkFulfilled converts the user's registration so later broadcasts skip it. No registration is not an error.
func (s *service) MarkFulfilled(ctx context.Context, userID, eventID, orderID uuid.UUID) error {
	key := registrationKey(userID, eventID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	reg, err := s.repo.GetUnfulfilledRegistration(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			return nil
		}
		return err
	}
	if err := reg.TransitionTo(RegistrationConverted); err != nil {
		return err
	}
	reg.OrderID = &orderID
	return s.repo.UpdateRegistration(ctx, reg)
}

func registrationKey(userID, eventID uuid.UUID) string {
	return "registration:" + userID.String() + ":" + eventID.String()
}
