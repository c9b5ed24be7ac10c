package promos_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/events"
	"ticketing/internal/promos"
	"ticketing/internal/shared/memstore"
)

func seedOffer(t *testing.T, store *memstore.Store, maxUses int) uuid.UUID {
	t.Helper()
	now := time.Now()
	event := &events.Event{
		ID:   uuid.New(),
		Name: "Gala",
		Date: now.Add(72 * time.Hour),
		PromoOffers: []events.PromoOffer{{
			ID:            uuid.New(),
			Name:          "Friends",
			Code:          "FRIENDS",
			DiscountType:  events.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(20),
			MaxUses:       maxUses,
			ValidFrom:     now.Add(-time.Hour),
			ValidUntil:    now.Add(time.Hour),
			Active:        true,
		}},
	}
	require.NoError(t, store.Events().Create(context.Background(), event))
	return event.ID
}

func currentUses(t *testing.T, store *memstore.Store, eventID uuid.UUID) int {
	t.Helper()
	offer, err := store.Promos().GetOffer(context.Background(), eventID, "FRIENDS")
	require.NoError(t, err)
	return offer.CurrentUses
}

func TestRedeem_ComputesDiscountAndCountsUse(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 3)
	svc := promos.NewService(store.Promos())

	discount, err := svc.Redeem(context.Background(), eventID, "FRIENDS", decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(discount))
	assert.Equal(t, 1, currentUses(t, store, eventID))
}

func TestRedeem_SingleUseUnderContention(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 1)
	svc := promos.NewService(store.Promos())

	var (
		wg        sync.WaitGroup
		redeemed  atomic.Int32
		exhausted atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Redeem(context.Background(), eventID, "FRIENDS", decimal.NewFromInt(100))
			switch {
			case err == nil:
				redeemed.Add(1)
			case errors.Is(err, promos.ErrPromoExhausted):
				exhausted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, redeemed.Load())
	assert.EqualValues(t, 1, exhausted.Load())
	assert.Equal(t, 1, currentUses(t, store, eventID))
}

func TestRedeem_NeverExceedsMaxUses(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 5)
	svc := promos.NewService(store.Promos())

	var wg sync.WaitGroup
	var redeemed atomic.Int32
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Redeem(context.Background(), eventID, "FRIENDS", decimal.NewFromInt(10)); err == nil {
				redeemed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, redeemed.Load())
	assert.Equal(t, 5, currentUses(t, store, eventID))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 1)
	svc := promos.NewService(store.Promos())

	offer, err := svc.Validate(context.Background(), eventID, "FRIENDS", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Friends", offer.Name)
	assert.Equal(t, 0, currentUses(t, store, eventID))

	_, err = svc.Validate(context.Background(), eventID, "NOPE", time.Now())
	var promoErr *promos.PromoError
	require.True(t, errors.As(err, &promoErr))
	assert.Equal(t, "NOPE", promoErr.Code)
	assert.ErrorIs(t, err, promos.ErrPromoNotFound)

	_, err = svc.Validate(context.Background(), eventID, "FRIENDS", time.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, promos.ErrPromoOutOfWindow)
}

func TestUnredeem(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 2)
	svc := promos.NewService(store.Promos())
	ctx := context.Background()

	_, err := svc.Redeem(ctx, eventID, "FRIENDS", decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, svc.Unredeem(ctx, eventID, "FRIENDS"))
	assert.Equal(t, 0, currentUses(t, store, eventID))

	// never drops below zero
	require.NoError(t, svc.Unredeem(ctx, eventID, "FRIENDS"))
	assert.Equal(t, 0, currentUses(t, store, eventID))

	assert.NoError(t, svc.Unredeem(ctx, eventID, "MISSING"))
}

func TestPreview(t *testing.T) {
	store := memstore.New()
	eventID := seedOffer(t, store, 4)
	svc := promos.NewService(store.Promos())

	preview, err := svc.Preview(context.Background(), eventID, "FRIENDS", decimal.NewFromInt(80))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(16).Equal(preview.Discount))
	assert.True(t, decimal.NewFromInt(64).Equal(preview.Total))
	assert.Equal(t, 4, preview.UsesLeft)
}
