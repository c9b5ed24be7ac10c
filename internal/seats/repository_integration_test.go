//go:build integration

package seats_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/shared/database"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestGormRepository_ConcurrentReserve(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	event := &events.Event{
		ID:              uuid.New(),
		Name:            "Integration " + uuid.NewString()[:8],
		Venue:           "Lab",
		Date:            time.Now().Add(24 * time.Hour),
		DurationMinutes: 60,
		TotalSeats:      2,
		AvailableSeats:  2,
		Status:          events.EventStatusPublished,
		CreatedBy:       uuid.New(),
	}
	event.TicketTypes = []events.TicketType{{
		ID: uuid.New(), EventID: event.ID, Name: "Floor", Price: decimal.NewFromInt(10),
		Quantity: 2, Rows: 1, Columns: 2, Status: events.TicketTypeActive,
	}}
	require.NoError(t, events.NewRepository(db).Create(ctx, event))

	svc := seats.NewService(seats.NewRepository(db))
	ttID := event.TicketTypes[0].ID

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, seats.ReserveRequest{TicketTypeID: ttID, Seats: []seats.Seat{{Row: 1, Column: 1}}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, seats.ErrAlreadyBooked):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, conflicts)

	stored, err := events.NewRepository(db).GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AvailableSeats)
}
