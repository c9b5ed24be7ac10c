package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/shared/ref"
)

// PaymentInfo is the already-authorized payment attached to an order
type PaymentInfo struct {
	Method        string          `json:"method" binding:"required"`
	TransactionID string          `json:"transaction_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// OrderLine is one ticket type (or waitlist ticket) within an order
type OrderLine struct {
	TicketTypeID     *uuid.UUID      `json:"ticket_type_id,omitempty"`
	WaitlistTicketID *uuid.UUID      `json:"waitlist_ticket_id,omitempty"`
	TicketTypeName   string          `json:"ticket_type_name"`
	Quantity         int             `json:"quantity"`
	Seats            []seats.Seat    `json:"seats"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	IsWaitlist       bool            `json:"is_waitlist"`
}

// Subtotal is unit price times quantity
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	EventID     uuid.UUID       `json:"event_id" gorm:"type:uuid;not null;index"`
	Lines       []OrderLine     `json:"lines" gorm:"type:jsonb;serializer:json;not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	Discount    decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null;default:0"`
	PromoCode   *string         `json:"promo_code,omitempty" gorm:"size:50"`
	Status      Status          `json:"status" gorm:"type:varchar(20);not null;default:'confirmed'"`
	PaymentInfo PaymentInfo     `json:"payment_info" gorm:"type:jsonb;serializer:json"`
	IsWaitlist  bool            `json:"is_waitlist" gorm:"not null;default:false"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	// PromoNotice explains why a supplied promo code was not applied
	PromoNotice string `json:"promo_notice,omitempty" gorm:"-"`
}

// TableName sets the table name for Order
func (Order) TableName() string {
	return "orders"
}

func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// SeatCount is the number of seat-indexed tickets in the order
func (o *Order) SeatCount() int {
	n := 0
	for _, l := range o.Lines {
		if !l.IsWaitlist {
			n += len(l.Seats)
		}
	}
	return n
}

func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.Seats = append([]seats.Seat(nil), l.Seats...)
		cp.Lines[i] = l
	}
	if o.PromoCode != nil {
		code := *o.PromoCode
		cp.PromoCode = &code
	}
	if o.CancelledAt != nil {
		at := *o.CancelledAt
		cp.CancelledAt = &at
	}
	return &cp
}

// OrderView is an order with its event reference, expanded on request
type OrderView struct {
	*Order
	Event ref.Ref[events.Event] `json:"event"`
}

type PaginatedOrders struct {
	Orders     []Order `json:"orders"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalCount int64   `json:"total_count"`
	TotalPages int     `json:"total_pages"`
}
