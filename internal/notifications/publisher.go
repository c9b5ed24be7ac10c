package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"ticketing/internal/shared/config"
	"ticketing/pkg/logger"
)

// Publisher hands notifications to a delivery transport
type Publisher interface {
	Publish(ctx context.Context, notification *WaitlistNotification) error
	PublishBatch(ctx context.Context, notifications []*WaitlistNotification) error
	Close() error
}

// NewPublisher builds the publisher selected by NOTIFICATION_BROKER
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch cfg.Notifications.Broker {
	case "kafka":
		kafkaCfg := DefaultKafkaProducerConfig()
		kafkaCfg.Brokers = cfg.Notifications.KafkaBrokers
		kafkaCfg.Topic = cfg.Notifications.KafkaTopic
		return NewKafkaPublisher(kafkaCfg)
	case "rabbitmq":
		return NewRabbitPublisher(cfg.Notifications.RabbitMQURL, cfg.Notifications.RabbitMQExchange)
	case "log", "":
		return NewLogPublisher(logger.GetDefault()), nil
	default:
		return nil, fmt.Errorf("unknown notification broker %q", cfg.Notifications.Broker)
	}
}

// LogPublisher writes notifications to the application log instead of a broker
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(l *logger.Logger) *LogPublisher {
	return &LogPublisher{log: l}
}

func (p *LogPublisher) Publish(ctx context.Context, n *WaitlistNotification) error {
	p.log.InfoContext(ctx, "Waitlist notification",
		slog.String("notification_id", n.ID.String()),
		slog.String("type", string(n.Type)),
		slog.String("event_id", n.EventID.String()),
		slog.String("waitlist_ticket_id", n.WaitlistTicketID.String()),
		slog.String("recipient_id", n.RecipientID.String()),
		slog.String("message", n.Message),
	)
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, notifications []*WaitlistNotification) error {
	for _, n := range notifications {
		if err := p.Publish(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
