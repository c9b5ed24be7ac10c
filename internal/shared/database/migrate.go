package database

import (
	"gorm.io/gorm"

	"ticketing/internal/events"
	"ticketing/internal/orders"
	"ticketing/internal/reporting"
	"ticketing/internal/waitlist"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&events.Event{},
		&events.TicketType{},
		&events.BookedSeat{},
		&events.PromoOffer{},
		&waitlist.Ticket{},
		&waitlist.Registration{},
		&orders.Order{},
		&reporting.UtilizationRecord{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
