package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) error
	GetTicketTypeByID(ctx context.Context, id uuid.UUID) (*TicketType, error)
	GetTicketTypeByName(ctx context.Context, eventID uuid.UUID, name string) (*TicketType, error)
	GetPromoOffer(ctx context.Context, eventID uuid.UUID, code string) (*PromoOffer, error)
	// RecomputeAvailableSeats rewrites available_seats from the booked seat rows and returns the new value
	RecomputeAvailableSeats(ctx context.Context, eventID uuid.UUID) (int, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).
		Preload("TicketTypes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, name ASC") }).
		Preload("TicketTypes.BookedSeats").
		Preload("PromoOffers").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) error {
	result := r.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update event status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) GetTicketTypeByID(ctx context.Context, id uuid.UUID) (*TicketType, error) {
	var tt TicketType
	err := r.db.WithContext(ctx).Preload("BookedSeats").Where("id = ?", id).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return &tt, nil
}

func (r *repository) GetTicketTypeByName(ctx context.Context, eventID uuid.UUID, name string) (*TicketType, error) {
	var tt TicketType
	err := r.db.WithContext(ctx).Preload("BookedSeats").
		Where("event_id = ? AND name = ?", eventID, name).
		First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return &tt, nil
}

func (r *repository) GetPromoOffer(ctx context.Context, eventID uuid.UUID, code string) (*PromoOffer, error) {
	var offer PromoOffer
	err := r.db.WithContext(ctx).Where("event_id = ? AND code = ?", eventID, code).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoOfferNotFound
		}
		return nil, fmt.Errorf("failed to get promo offer: %w", err)
	}
	return &offer, nil
}

func (r *repository) RecomputeAvailableSeats(ctx context.Context, eventID uuid.UUID) (int, error) {
	var available int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", eventID).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		var booked int64
		if err := tx.Model(&BookedSeat{}).
			Joins("JOIN ticket_types ON ticket_types.id = booked_seats.ticket_type_id").
			Where("ticket_types.event_id = ?", eventID).
			Count(&booked).Error; err != nil {
			return err
		}

		available = event.TotalSeats - int(booked)
		if available < 0 {
			available = 0
		}
		return tx.Model(&Event{}).Where("id = ?", eventID).Update("available_seats", available).Error
	})
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to recompute available seats: %w", err)
	}
	return available, nil
}

func (r *repository) ListBetween(ctx context.Context, from, to time.Time) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Preload("TicketTypes.BookedSeats").
		Where("date >= ? AND date < ?", from, to).
		Where("status <> ?", EventStatusCancelled).
		Order("date ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
