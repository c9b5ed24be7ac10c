package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateEventRequest struct {
	Name            string              `json:"name" validate:"required,min=3,max=255"`
	Description     string              `json:"description" validate:"max=5000"`
	Venue           string              `json:"venue" validate:"required,max=255"`
	Date            time.Time           `json:"date" validate:"required"`
	DurationMinutes int                 `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	TicketTypes     []TicketTypeRequest `json:"ticket_types" validate:"required,min=1,dive"`
	PromoOffers     []PromoOfferRequest `json:"promo_offers" validate:"omitempty,dive"`
}

type TicketTypeRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Rows      int             `json:"rows" validate:"required,min=1"`
	Columns   int             `json:"columns" validate:"required,min=1"`
	SaleStart time.Time       `json:"sale_start"`
	SaleEnd   time.Time       `json:"sale_end"`
}

type PromoOfferRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Code          string          `json:"code" validate:"required,alphanum,max=50"`
	DiscountType  DiscountType    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	MaxUses       int             `json:"max_uses" validate:"required,min=1"`
	ValidFrom     time.Time       `json:"valid_from" validate:"required"`
	ValidUntil    time.Time       `json:"valid_until" validate:"required"`
	Active        *bool           `json:"active"`
}
