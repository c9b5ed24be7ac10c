package orders

import (
	"github.com/google/uuid"

	"ticketing/internal/seats"
)

type LineRequest struct {
	TicketType string       `json:"ticket_type" binding:"required"`
	Quantity   int          `json:"quantity" binding:"required,min=1"`
	Seats      []seats.Seat `json:"seats" binding:"omitempty,dive"`
	IsWaitlist *bool        `json:"is_waitlist,omitempty"`
}

type CreateOrderRequest struct {
	EventID     uuid.UUID     `json:"event_id" binding:"required"`
	Lines       []LineRequest `json:"lines" binding:"dive"`
	PaymentInfo PaymentInfo   `json:"payment_info"`
	IsWaitlist  bool          `json:"is_waitlist"`
	PromoCode   *string       `json:"promo_code,omitempty"`
}

type ListOrdersQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}
