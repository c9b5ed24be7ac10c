package waitlist

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is a seatless quantity pool opened for an event once its regular inventory is gone
type Ticket struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	EventID           uuid.UUID       `json:"event_id" gorm:"type:uuid;not null;index"`
	Name              string          `json:"name" gorm:"not null;size:100"`
	Price             decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Quantity          int             `json:"quantity" gorm:"not null;check:quantity >= 0"`
	OriginalTicketRef string          `json:"original_ticket_ref" gorm:"not null;size:100"`
	CreatedBy         uuid.UUID       `json:"created_by" gorm:"type:uuid;not null"`
	SoldOutNotified   bool            `json:"sold_out_notified" gorm:"not null;default:false"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Ticket) TableName() string {
	return "waitlist_tickets"
}

// TicketSpec describes one waitlist ticket an organizer wants to issue
type TicketSpec struct {
	Name              string          `json:"name" validate:"required,max=100"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity" validate:"required,min=1"`
	OriginalTicketRef string          `json:"original_ticket_ref" validate:"required,max=100"`
}

type OpenWaitlistRequest struct {
	Tickets []TicketSpec `json:"tickets" validate:"required,min=1,dive"`
}

// RegistrationStatus represents the status of a waiting-list registration
type RegistrationStatus string

const (
	RegistrationActive    RegistrationStatus = "ACTIVE"
	RegistrationNotified  RegistrationStatus = "NOTIFIED"
	RegistrationConverted RegistrationStatus = "CONVERTED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
)

// IsUnfulfilled reports registrations that still receive waitlist broadcasts
func (rs RegistrationStatus) IsUnfulfilled() bool {
	return rs == RegistrationActive || rs == RegistrationNotified
}

// CanTransitionTo checks if the status can transition to the target status
func (rs RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	switch rs {
	case RegistrationActive:
		return target == RegistrationNotified || target == RegistrationConverted || target == RegistrationCancelled
	case RegistrationNotified:
		return target == RegistrationNotified || target == RegistrationConverted || target == RegistrationCancelled
	default:
		return false
	}
}

// Registration is a user's request to hear about waitlist inventory for an event
type Registration struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID          `json:"user_id" gorm:"type:uuid;not null;index"`
	EventID    uuid.UUID          `json:"event_id" gorm:"type:uuid;not null;index"`
	Email      string             `json:"email" gorm:"size:255"`
	Quantity   int                `json:"quantity" gorm:"not null"`
	Status     RegistrationStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	OrderID    *uuid.UUID         `json:"order_id,omitempty" gorm:"type:uuid"`
	JoinedAt   time.Time          `json:"joined_at" gorm:"not null"`
	NotifiedAt *time.Time         `json:"notified_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TransitionTo moves the registration to target or returns ErrInvalidTransition.
func (r *Registration) TransitionTo(target RegistrationStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, r.Status, target)
	}
	r.Status = target
	return nil
}

func (Registration) TableName() string {
	return "waitlist_registrations"
}

type JoinRequest struct {
	Quantity int    `json:"quantity" binding:"required,min=1,max=10"`
	Email    string `json:"email" binding:"omitempty,email"`
}

const MaxQuantityPerUser = 10
