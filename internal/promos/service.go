package promos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/events"
	"ticketing/pkg/logger"
	"ticketing/pkg/metrics"
)

// Service is the promo ledger for discount codes attached to events.
type Service interface {
	SetClock(now func() time.Time)
	// Validate looks the code up and checks it is redeemable at now. It never mutates.
	Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*events.PromoOffer, error)
	// Redeem re-validates and consumes one use in a single locked step, returning the discount on total
	Redeem(ctx context.Context, eventID uuid.UUID, code string, total decimal.Decimal) (decimal.Decimal, error)
	// Unredeem gives back a use consumed by a redemption that could not be kept
	Unredeem(ctx context.Context, eventID uuid.UUID, code string) error
	Preview(ctx context.Context, eventID uuid.UUID, code string, amount decimal.Decimal) (*Preview, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *service) Validate(ctx context.Context, eventID uuid.UUID, code string, now time.Time) (*events.PromoOffer, error) {
	offer, err := s.repo.GetOffer(ctx, eventID, code)
	if err != nil {
		return nil, err
	}
	if err := checkOffer(offer, now); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *service) Redeem(ctx context.Context, eventID uuid.UUID, code string, total decimal.Decimal) (decimal.Decimal, error) {
	var discount decimal.Decimal
	start := time.Now()
	err := s.repo.MutateOffer(ctx, eventID, code, func(offer *events.PromoOffer) error {
		defer metrics.ObserveCriticalSection("promo_offer", start)
		if err := checkOffer(offer, s.now()); err != nil {
			return err
		}
		offer.CurrentUses++
		discount = Discount(offer, total)
		return nil
	})

	metrics.PromoRedemption(metrics.Outcome(err))
	if err != nil {
		return decimal.Zero, err
	}
	return discount, nil
}

func (s *service) Unredeem(ctx context.Context, eventID uuid.UUID, code string) error {
	err := s.repo.MutateOffer(ctx, eventID, code, func(offer *events.PromoOffer) error {
		if offer.CurrentUses > 0 {
			offer.CurrentUses--
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrPromoNotFound) {
		logger.GetDefault().ErrorContext(ctx, "Failed to return promo use",
			slog.String("event_id", eventID.String()),
			slog.String("code", code),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *service) Preview(ctx context.Context, eventID uuid.UUID, code string, amount decimal.Decimal) (*Preview, error) {
	offer, err := s.Validate(ctx, eventID, code, s.now())
	if err != nil {
		return nil, err
	}

	discount := Discount(offer, amount)
	return &Preview{
		Code:          offer.Code,
		Name:          offer.Name,
		DiscountType:  offer.DiscountType,
		DiscountValue: offer.DiscountValue,
		Amount:        amount,
		Discount:      discount,
		Total:         amount.Sub(discount),
		UsesLeft:      offer.MaxUses - offer.CurrentUses,
		ValidUntil:    offer.ValidUntil,
	}, nil
}
