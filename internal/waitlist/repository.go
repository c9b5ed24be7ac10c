package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface defines the contract for waitlist data operations
type Repository interface {
	// Waitlist tickets
	ReplaceTickets(ctx context.Context, eventID uuid.UUID, tickets []Ticket) error
	ListTickets(ctx context.Context, eventID uuid.UUID) ([]Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// MutateTicket runs fn with the ticket row locked and saves quantity and notification state
	MutateTicket(ctx context.Context, id uuid.UUID, fn func(t *Ticket) error) error

	// Registrations
	CreateRegistration(ctx context.Context, reg *Registration) error
	UpdateRegistration(ctx context.Context, reg *Registration) error
	GetUnfulfilledRegistration(ctx context.Context, userID, eventID uuid.UUID) (*Registration, error)
	ListUnfulfilled(ctx context.Context, eventID uuid.UUID) ([]Registration, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waitlist repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ReplaceTickets(ctx context.Context, eventID uuid.UUID, tickets []Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&Ticket{}).Error; err != nil {
			return fmt.Errorf("failed to purge waitlist tickets: %w", err)
		}
		if len(tickets) == 0 {
			return nil
		}
		if err := tx.Create(&tickets).Error; err != nil {
			return fmt.Errorf("failed to create waitlist tickets: %w", err)
		}
		return nil
	})
}

func (r *repository) ListTickets(ctx context.Context, eventID uuid.UUID) ([]Ticket, error) {
	var tickets []Ticket
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, name ASC").Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist tickets: %w", err)
	}
	return tickets, nil
}

func (r *repository) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWaitlistTicketNotFound
		}
		return nil, fmt.Errorf("failed to get waitlist ticket: %w", err)
	}
	return &ticket, nil
}

func (r *repository) MutateTicket(ctx context.Context, id uuid.UUID, fn func(t *Ticket) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWaitlistTicketNotFound
			}
			return fmt.Errorf("failed to lock waitlist ticket: %w", err)
		}

		if err := fn(&ticket); err != nil {
			return err
		}

		err := tx.Model(&Ticket{}).Where("id = ?", id).Updates(map[string]interface{}{
			"quantity":          ticket.Quantity,
			"sold_out_notified": ticket.SoldOutNotified,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update waitlist ticket: %w", err)
		}
		return nil
	})
}

func (r *repository) CreateRegistration(ctx context.Context, reg *Registration) error {
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *repository) UpdateRegistration(ctx context.Context, reg *Registration) error {
	if err := r.db.WithContext(ctx).Save(reg).Error; err != nil {
		return fmt.Errorf("failed to update registration: %w", err)
	}
	return nil
}

func (r *repository) GetUnfulfilledRegistration(ctx context.Context, userID, eventID uuid.UUID) (*Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ? AND status IN ?", userID, eventID,
			[]RegistrationStatus{RegistrationActive, RegistrationNotified}).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

func (r *repository) ListUnfulfilled(ctx context.Context, eventID uuid.UUID) ([]Registration, error) {
	var regs []Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status IN ?", eventID, []RegistrationStatus{RegistrationActive, RegistrationNotified}).
		Order("joined_at ASC").
		Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (r *repository) MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&Registration{}).
		Where("id IN ? AND status IN ?", ids, []RegistrationStatus{RegistrationActive, RegistrationNotified}).
		Updates(map[string]interface{}{"status": RegistrationNotified, "notified_at": at}).Error
	if err != nil {
		return fmt.Errorf("failed to mark registrations notified: %w", err)
	}
	return nil
}
