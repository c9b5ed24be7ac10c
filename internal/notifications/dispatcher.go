package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/waitlist"
	"ticketing/pkg/logger"
)

// RegistrationSource lists who is still waiting on an event
type RegistrationSource interface {
	ListUnfulfilled(ctx context.Context, eventID uuid.UUID) ([]waitlist.Registration, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID) error
}

// Dispatcher fans a waitlist event out to every unfulfilled registration
type Dispatcher struct {
	registrations RegistrationSource
	publisher     Publisher
	now           func() time.Time
}

func NewDispatcher(registrations RegistrationSource, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		registrations: registrations,
		publisher:     publisher,
		now:           time.Now,
	}
}

// NotifyWaitlistOpened announces a new waitlist ticket and returns the recipient count
func (d *Dispatcher) NotifyWaitlistOpened(ctx context.Context, eventID, waitlistTicketID uuid.UUID, message string) (int, error) {
	return d.broadcast(ctx, NotificationTypeWaitlistOpened, eventID, waitlistTicketID, message)
}

// NotifyWaitlistSoldOut tells waiting users a waitlist ticket is gone
func (d *Dispatcher) NotifyWaitlistSoldOut(ctx context.Context, eventID, waitlistTicketID uuid.UUID) (int, error) {
	return d.broadcast(ctx, NotificationTypeWaitlistSoldOut, eventID, waitlistTicketID, "Waitlist tickets for this event are sold out")
}

func (d *Dispatcher) broadcast(ctx context.Context, kind NotificationType, eventID, waitlistTicketID uuid.UUID, message string) (int, error) {
	regs, err := d.registrations.ListUnfulfilled(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to load registrations: %w", err)
	}
	if len(regs) == 0 {
		return 0, nil
	}

	now := d.now()
	batch := make([]*WaitlistNotification, 0, len(regs))
	ids := make([]uuid.UUID, 0, len(regs))
	for _, reg := range regs {
		batch = append(batch, &WaitlistNotification{
			ID:               uuid.New(),
			Type:             kind,
			Priority:         priorityFor(kind),
			RegistrationID:   reg.ID,
			RecipientID:      reg.UserID,
			RecipientEmail:   reg.Email,
			EventID:          eventID,
			WaitlistTicketID: waitlistTicketID,
			Message:          message,
			CreatedAt:        now,
		})
		ids = append(ids, reg.ID)
	}

	if err := d.publisher.PublishBatch(ctx, batch); err != nil {
		return 0, err
	}

	if kind == NotificationTypeWaitlistOpened {
		if err := d.registrations.MarkNotified(ctx, ids); err != nil {
			logger.GetDefault().WarnContext(ctx, "Failed to mark registrations notified",
				slog.String("event_id", eventID.String()),
				slog.String("error", err.Error()))
		}
	}

	logger.GetDefault().InfoContext(ctx, "Waitlist notifications dispatched",
		slog.String("type", string(kind)),
		slog.String("event_id", eventID.String()),
		slog.Int("recipients", len(batch)))
	return len(batch), nil
}
