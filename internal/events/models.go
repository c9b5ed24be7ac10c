package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event struct {
	ID              uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string      `json:"name" gorm:"not null;size:255"`
	Description     string      `json:"description" gorm:"type:text"`
	Venue           string      `json:"venue" gorm:"not null;size:255"`
	Date            time.Time   `json:"date" gorm:"not null;index"`
	DurationMinutes int         `json:"duration_minutes" gorm:"not null;default:120"`
	TotalSeats      int         `json:"total_seats" gorm:"not null;check:total_seats >= 0"`
	AvailableSeats  int         `json:"available_seats" gorm:"not null;check:available_seats >= 0"`
	Status          EventStatus `json:"status" gorm:"type:varchar(20);default:'draft'"`

	TicketTypes []TicketType `json:"ticket_types" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;"`
	PromoOffers []PromoOffer `json:"promo_offers,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE;"`

	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TicketType is a priced category of an event backed by a rows x columns seat grid
type TicketType struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID        `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_ticket_type_event_name"`
	Name      string           `json:"name" gorm:"not null;size:100;uniqueIndex:idx_ticket_type_event_name"`
	Price     decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null"`
	Quantity  int              `json:"quantity" gorm:"not null;check:quantity > 0"`
	Rows      int              `json:"rows" gorm:"column:grid_rows;not null"`
	Columns   int              `json:"columns" gorm:"column:grid_columns;not null"`
	SaleStart time.Time        `json:"sale_start"`
	SaleEnd   time.Time        `json:"sale_end"`
	Status    TicketTypeStatus `json:"status" gorm:"type:varchar(20);default:'active'"`

	BookedSeats []BookedSeat `json:"booked_seats,omitempty" gorm:"foreignKey:TicketTypeID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BookedSeat marks one grid coordinate as taken by a booking
type BookedSeat struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TicketTypeID uuid.UUID `json:"ticket_type_id" gorm:"type:uuid;not null;uniqueIndex:idx_booked_seat_coordinate"`
	Row          int       `json:"row" gorm:"column:seat_row;not null;uniqueIndex:idx_booked_seat_coordinate"`
	Column       int       `json:"column" gorm:"column:seat_column;not null;uniqueIndex:idx_booked_seat_coordinate"`
	BookingID    uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type PromoOffer struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID       `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_promo_event_code"`
	Name          string          `json:"name" gorm:"not null;size:100"`
	Code          string          `json:"code" gorm:"not null;size:50;uniqueIndex:idx_promo_event_code"`
	DiscountType  DiscountType    `json:"discount_type" gorm:"type:varchar(20);not null"`
	DiscountValue decimal.Decimal `json:"discount_value" gorm:"type:numeric(12,2);not null"`
	MaxUses       int             `json:"max_uses" gorm:"not null"`
	CurrentUses   int             `json:"current_uses" gorm:"not null;default:0;check:current_uses >= 0"`
	ValidFrom     time.Time       `json:"valid_from"`
	ValidUntil    time.Time       `json:"valid_until"`
	Active        bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

func (TicketType) TableName() string {
	return "ticket_types"
}

func (BookedSeat) TableName() string {
	return "booked_seats"
}

func (PromoOffer) TableName() string {
	return "promo_offers"
}

// Remaining is how many seats can still be reserved
func (t *TicketType) Remaining() int {
	return t.Quantity - len(t.BookedSeats)
}

func (t *TicketType) IsFull() bool {
	return len(t.BookedSeats) >= t.Quantity
}

// InSaleWindow reports whether now falls within [SaleStart, SaleEnd]. Zero bounds are open.
func (t *TicketType) InSaleWindow(now time.Time) bool {
	if !t.SaleStart.IsZero() && now.Before(t.SaleStart) {
		return false
	}
	if !t.SaleEnd.IsZero() && now.After(t.SaleEnd) {
		return false
	}
	return true
}

func (t *TicketType) SaleEnded(now time.Time) bool {
	return !t.SaleEnd.IsZero() && now.After(t.SaleEnd)
}

// BookedSeatCount sums booked seats over every ticket type
func (e *Event) BookedSeatCount() int {
	total := 0
	for i := range e.TicketTypes {
		total += len(e.TicketTypes[i].BookedSeats)
	}
	return total
}

// EndsAt is the scheduled end of the event
func (e *Event) EndsAt() time.Time {
	return e.Date.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

func (e *Event) TicketTypeByName(name string) *TicketType {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].Name == name {
			return &e.TicketTypes[i]
		}
	}
	return nil
}

// Clone returns a deep copy
func (e *Event) Clone() *Event {
	cp := *e
	cp.TicketTypes = make([]TicketType, len(e.TicketTypes))
	for i := range e.TicketTypes {
		cp.TicketTypes[i] = *e.TicketTypes[i].Clone()
	}
	cp.PromoOffers = append([]PromoOffer(nil), e.PromoOffers...)
	return &cp
}

func (t *TicketType) Clone() *TicketType {
	cp := *t
	cp.BookedSeats = append([]BookedSeat(nil), t.BookedSeats...)
	return &cp
}
