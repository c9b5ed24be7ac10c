package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ticketing/internal/events"
	"ticketing/internal/orders"
	"ticketing/internal/promos"
	"ticketing/internal/reporting"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/waitlist"
)

// demo accounts; tokens for them are minted by the identity provider
var (
	organizerID = uuid.MustParse("9f3c2a9e-5c1f-4c35-9c59-2f1d8a7b6e01")
	customerID  = uuid.MustParse("1b7e4d2c-8a3f-4f6e-b1c9-7d5a2e9f3c02")
)

type Seeder struct {
	db *database.DB

	events   events.Service
	orders   orders.Service
	reports  reporting.Service
	waitlist waitlist.Service
}

func main() {
	fmt.Println("🌱 Starting ticketing database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.UsesMemoryStore() {
		log.Fatal("Seeder needs STORE_DRIVER=postgres; the memory store does not outlive the process")
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := newSeeder(db)

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

func newSeeder(db *database.DB) *Seeder {
	pg := db.GetPostgreSQL()

	eventService := events.NewService(events.NewRepository(pg))
	seatService := seats.NewService(seats.NewRepository(pg))
	promoService := promos.NewService(promos.NewRepository(pg))
	waitlistService := waitlist.NewService(waitlist.NewRepository(pg), eventService)

	return &Seeder{
		db:       db,
		events:   eventService,
		orders:   orders.NewService(orders.NewRepository(pg), eventService, seatService, waitlistService, promoService),
		reports:  reporting.NewService(reporting.NewRepository(pg), eventService),
		waitlist: waitlistService,
	}
}

// CleanDatabase truncates every table in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"utilization_records",
		"orders",
		"waitlist_registrations",
		"waitlist_tickets",
		"promo_offers",
		"booked_seats",
		"ticket_types",
		"events",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll creates an upcoming concert with a promo and a sold-out show with a
// waitlist, then rebuilds yesterday's utilization record.
func (s *Seeder) SeedAll(ctx context.Context) error {
	now := time.Now().UTC()

	concert, err := s.createEvent(ctx, events.CreateEventRequest{
		Name:            "Autumn Strings Live",
		Description:     "An evening of chamber music",
		Venue:           "Main Auditorium",
		Date:            now.AddDate(0, 1, 0).Truncate(time.Hour),
		DurationMinutes: 150,
		TicketTypes: []events.TicketTypeRequest{
			{Name: "VIP", Price: decimal.NewFromInt(150), Quantity: 20, Rows: 2, Columns: 10},
			{Name: "Standard", Price: decimal.NewFromInt(60), Quantity: 100, Rows: 10, Columns: 10},
		},
		PromoOffers: []events.PromoOfferRequest{
			{
				Name:          "Early bird",
				Code:          "EARLY20",
				DiscountType:  events.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
				MaxUses:       50,
				ValidFrom:     now.Add(-time.Hour),
				ValidUntil:    now.AddDate(0, 0, 14),
			},
		},
	})
	if err != nil {
		return err
	}

	intimate, err := s.createEvent(ctx, events.CreateEventRequest{
		Name:            "Unplugged Session",
		Venue:           "Studio B",
		Date:            now.AddDate(0, 0, 10).Truncate(time.Hour),
		DurationMinutes: 90,
		TicketTypes: []events.TicketTypeRequest{
			{Name: "General", Price: decimal.NewFromInt(40), Quantity: 2, Rows: 1, Columns: 2},
		},
	})
	if err != nil {
		return err
	}
	if _, err := s.book(ctx, intimate.ID, "General", []seats.Seat{{Row: 1, Column: 1}, {Row: 1, Column: 2}}); err != nil {
		return err
	}
	if _, err := s.waitlist.Open(ctx, intimate.ID, organizerID, []waitlist.TicketSpec{
		{Name: "Standing", Price: decimal.NewFromInt(30), Quantity: 10, OriginalTicketRef: "General"},
	}); err != nil {
		return fmt.Errorf("failed to open waitlist: %w", err)
	}
	fmt.Println("    ✅ Opened waitlist for sold-out event")

	if _, err := s.book(ctx, concert.ID, "VIP", []seats.Seat{{Row: 1, Column: 5}, {Row: 1, Column: 6}}); err != nil {
		return err
	}

	yesterday := reporting.StartOfDay(now).Add(-24 * time.Hour)
	if _, err := s.reports.RebuildUtilization(ctx, yesterday, now); err != nil {
		return fmt.Errorf("failed to rebuild utilization: %w", err)
	}
	fmt.Println("    ✅ Rebuilt utilization for yesterday")

	return nil
}

func (s *Seeder) createEvent(ctx context.Context, req events.CreateEventRequest) (*events.Event, error) {
	event, err := s.events.CreateEvent(ctx, organizerID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create event %s: %w", req.Name, err)
	}
	if _, err := s.events.PublishEvent(ctx, event.ID, organizerID, false); err != nil {
		return nil, fmt.Errorf("failed to publish event %s: %w", req.Name, err)
	}
	fmt.Printf("    ✅ Created event: %s (%d seats)\n", event.Name, event.TotalSeats)
	return event, nil
}

func (s *Seeder) book(ctx context.Context, eventID uuid.UUID, ticketType string, picked []seats.Seat) (*orders.Order, error) {
	order, err := s.orders.CreateOrder(ctx, customerID, orders.CreateOrderRequest{
		EventID: eventID,
		Lines: []orders.LineRequest{
			{TicketType: ticketType, Quantity: len(picked), Seats: picked},
		},
		PaymentInfo: orders.PaymentInfo{
			Method:        "card",
			TransactionID: "seed-" + uuid.NewString(),
			Currency:      "USD",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to book %s: %w", ticketType, err)
	}
	fmt.Printf("    ✅ Booked %d %s seat(s), order %s\n", len(picked), ticketType, order.ID)
	return order, nil
}
