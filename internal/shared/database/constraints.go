package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the partial indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// At most one non-cancelled waitlist order per user and event
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_waitlist_order
		ON orders (user_id, event_id)
		WHERE is_waitlist AND status <> 'cancelled';
	`).Error
	if err != nil {
		return err
	}

	// One open waiting-list registration per user and event
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_unfulfilled_registration
		ON waitlist_registrations (user_id, event_id)
		WHERE status IN ('ACTIVE', 'NOTIFIED');
	`).Error
	if err != nil {
		return err
	}

	// Booked seat lookups by booking for release
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_booked_seats_ticket_booking
		ON booked_seats (ticket_type_id, booking_id);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
