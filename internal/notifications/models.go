package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeWaitlistOpened  NotificationType = "WAITLIST_OPENED"
	NotificationTypeWaitlistSoldOut NotificationType = "WAITLIST_SOLD_OUT"
)

type NotificationPriority string

const (
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// WaitlistNotification is one message addressed to one waiting-list registration
type WaitlistNotification struct {
	ID       uuid.UUID            `json:"id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`

	RegistrationID uuid.UUID `json:"registration_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	RecipientEmail string    `json:"recipient_email"`

	EventID          uuid.UUID `json:"event_id"`
	WaitlistTicketID uuid.UUID `json:"waitlist_ticket_id"`
	Message          string    `json:"message"`

	CreatedAt time.Time `json:"created_at"`
}

// PartitionKey keeps every message for an event on one partition
func (n *WaitlistNotification) PartitionKey() string {
	return n.EventID.String()
}

// RoutingKey is the topic exchange key
func (n *WaitlistNotification) RoutingKey() string {
	switch n.Type {
	case NotificationTypeWaitlistSoldOut:
		return "waitlist.sold_out"
	default:
		return "waitlist.opened"
	}
}

func (n *WaitlistNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func priorityFor(t NotificationType) NotificationPriority {
	if t == NotificationTypeWaitlistOpened {
		return NotificationPriorityHigh
	}
	return NotificationPriorityMedium
}
