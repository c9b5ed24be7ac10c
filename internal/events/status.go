package events

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

// TicketTypeStatus tracks whether a ticket type can still be sold
type TicketTypeStatus string

const (
	TicketTypeActive       TicketTypeStatus = "active"
	TicketTypeSoldOut      TicketTypeStatus = "sold_out"
	TicketTypeExpired      TicketTypeStatus = "expired"
	TicketTypeDiscontinued TicketTypeStatus = "discontinued"
)

// IsClosed reports statuses that no reservation may move out of
func (s TicketTypeStatus) IsClosed() bool {
	return s == TicketTypeExpired || s == TicketTypeDiscontinued
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)
