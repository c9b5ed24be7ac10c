package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ticketing/internal/shared/constants"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

// Service is the event catalog: source of truth for ticket type definitions and publish state.
type Service interface {
	SetCacheService(cacheService cache.Service)
	SetCacheTTL(ttl time.Duration)
	CreateEvent(ctx context.Context, organizerID uuid.UUID, req CreateEventRequest) (*Event, error)
	PublishEvent(ctx context.Context, eventID, requesterID uuid.UUID, isAdmin bool) (*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetTicketType(ctx context.Context, eventID uuid.UUID, name string) (*TicketType, error)
	GetTicketTypeByID(ctx context.Context, id uuid.UUID) (*TicketType, error)
	GetPromoOffer(ctx context.Context, eventID uuid.UUID, code string) (*PromoOffer, error)
	IsEventSoldOut(ctx context.Context, eventID uuid.UUID) (bool, error)
	RecomputeAvailableSeats(ctx context.Context, eventID uuid.UUID) (int, error)
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]Event, error)
	InvalidateEvent(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	cacheTTL     time.Duration
}

func NewService(repo Repository) Service {
	return &service{repo: repo, cacheTTL: constants.TTL_EVENT_DETAIL}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *service) CreateEvent(ctx context.Context, organizerID uuid.UUID, req CreateEventRequest) (*Event, error) {
	if err := ValidateCreateEvent(req); err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = 120
	}

	event := &Event{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		Venue:           req.Venue,
		Date:            req.Date.UTC(),
		DurationMinutes: duration,
		Status:          EventStatusDraft,
		CreatedBy:       organizerID,
	}

	for _, tt := range req.TicketTypes {
		event.TicketTypes = append(event.TicketTypes, TicketType{
			ID:        uuid.New(),
			EventID:   event.ID,
			Name:      tt.Name,
			Price:     tt.Price.Round(2),
			Quantity:  tt.Quantity,
			Rows:      tt.Rows,
			Columns:   tt.Columns,
			SaleStart: tt.SaleStart,
			SaleEnd:   tt.SaleEnd,
			Status:    TicketTypeActive,
		})
		event.TotalSeats += tt.Quantity
	}
	event.AvailableSeats = event.TotalSeats

	for _, po := range req.PromoOffers {
		active := true
		if po.Active != nil {
			active = *po.Active
		}
		event.PromoOffers = append(event.PromoOffers, PromoOffer{
			ID:            uuid.New(),
			EventID:       event.ID,
			Name:          po.Name,
			Code:          po.Code,
			DiscountType:  po.DiscountType,
			DiscountValue: po.DiscountValue,
			MaxUses:       po.MaxUses,
			ValidFrom:     po.ValidFrom,
			ValidUntil:    po.ValidUntil,
			Active:        active,
		})
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	logger.GetDefault().LogEventCreated(ctx, event.ID.String(), organizerID.String())
	return event, nil
}

func (s *service) PublishEvent(ctx context.Context, eventID, requesterID uuid.UUID, isAdmin bool) (*Event, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && event.CreatedBy != requesterID {
		return nil, ErrNotEventOwner
	}
	if event.Status != EventStatusDraft {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, eventID, EventStatusPublished); err != nil {
		return nil, err
	}
	event.Status = EventStatusPublished

	s.InvalidateEvent(ctx, eventID)
	return event, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	key := constants.BuildEventDetailKey(id.String())

	if s.cacheService != nil {
		var cached Event
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, key, event, s.cacheTTL); err != nil {
			logger.GetDefault().WarnContext(ctx, "Failed to cache event",
				slog.String("event_id", id.String()),
				slog.String("error", err.Error()))
		}
	}

	return event, nil
}

// GetTicketType resolves a ticket type by name. Reads bypass the cache so seat counts are current.
func (s *service) GetTicketType(ctx context.Context, eventID uuid.UUID, name string) (*TicketType, error) {
	return s.repo.GetTicketTypeByName(ctx, eventID, name)
}

func (s *service) GetTicketTypeByID(ctx context.Context, id uuid.UUID) (*TicketType, error) {
	return s.repo.GetTicketTypeByID(ctx, id)
}

func (s *service) GetPromoOffer(ctx context.Context, eventID uuid.UUID, code string) (*PromoOffer, error) {
	return s.repo.GetPromoOffer(ctx, eventID, code)
}

// IsEventSoldOut is true when every regular ticket type has all of its seats booked
func (s *service) IsEventSoldOut(ctx context.Context, eventID uuid.UUID) (bool, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	for i := range event.TicketTypes {
		if !event.TicketTypes[i].IsFull() {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) RecomputeAvailableSeats(ctx context.Context, eventID uuid.UUID) (int, error) {
	available, err := s.repo.RecomputeAvailableSeats(ctx, eventID)
	if err != nil {
		return 0, err
	}
	s.InvalidateEvent(ctx, eventID)
	return available, nil
}

func (s *service) ListEventsBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.repo.ListBetween(ctx, from, to)
}

// InvalidateEvent drops the cached event detail. Cache failures are logged, never returned.
func (s *service) InvalidateEvent(ctx context.Context, eventID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildEventDetailKey(eventID.String())); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		logger.GetDefault().WarnContext(ctx, "Failed to invalidate event cache",
			slog.String("event_id", eventID.String()),
			slog.String("error", err.Error()))
	}
}
