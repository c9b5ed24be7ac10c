package seats

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/events"
)

// MutateFunc edits a ticket type's booked seats and status in place.
// Returning an error discards every change.
type MutateFunc func(tt *events.TicketType) error

type Repository interface {
	GetTicketType(ctx context.Context, id uuid.UUID) (*events.TicketType, error)
	// MutateTicketType runs fn while holding the ticket type's lock and persists the result atomically
	MutateTicketType(ctx context.Context, id uuid.UUID, fn MutateFunc) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTicketType(ctx context.Context, id uuid.UUID) (*events.TicketType, error) {
	var tt events.TicketType
	err := r.db.WithContext(ctx).Preload("BookedSeats").Where("id = ?", id).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return &tt, nil
}

func (r *repository) MutateTicketType(ctx context.Context, id uuid.UUID, fn MutateFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tt events.TicketType
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&tt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketTypeNotFound
			}
			return fmt.Errorf("failed to lock ticket type: %w", err)
		}
		if err := tx.Where("ticket_type_id = ?", id).Find(&tt.BookedSeats).Error; err != nil {
			return fmt.Errorf("failed to load booked seats: %w", err)
		}

		before := make(map[uuid.UUID]struct{}, len(tt.BookedSeats))
		for _, bs := range tt.BookedSeats {
			before[bs.ID] = struct{}{}
		}
		prevStatus := tt.Status

		if err := fn(&tt); err != nil {
			return err
		}

		var inserts []events.BookedSeat
		after := make(map[uuid.UUID]struct{}, len(tt.BookedSeats))
		for _, bs := range tt.BookedSeats {
			after[bs.ID] = struct{}{}
			if _, ok := before[bs.ID]; !ok {
				inserts = append(inserts, bs)
			}
		}
		var deletes []uuid.UUID
		for seatID := range before {
			if _, ok := after[seatID]; !ok {
				deletes = append(deletes, seatID)
			}
		}

		if len(deletes) > 0 {
			if err := tx.Where("id IN ?", deletes).Delete(&events.BookedSeat{}).Error; err != nil {
				return fmt.Errorf("failed to release seats: %w", err)
			}
		}
		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return seatError(ErrAlreadyBooked, &tt, nil)
				}
				return fmt.Errorf("failed to book seats: %w", err)
			}
		}
		if tt.Status != prevStatus {
			if err := tx.Model(&events.TicketType{}).Where("id = ?", id).
				Update("status", tt.Status).Error; err != nil {
				return fmt.Errorf("failed to update ticket type status: %w", err)
			}
		}

		if delta := len(inserts) - len(deletes); delta != 0 {
			if err := tx.Model(&events.Event{}).Where("id = ?", tt.EventID).
				Update("available_seats", gorm.Expr("available_seats - ?", delta)).Error; err != nil {
				return fmt.Errorf("failed to update available seats: %w", err)
			}
		}
		return nil
	})
}
