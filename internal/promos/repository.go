package promos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticketing/internal/events"
)

type Repository interface {
	GetOffer(ctx context.Context, eventID uuid.UUID, code string) (*events.PromoOffer, error)
	// MutateOffer runs fn with the offer row locked and saves current_uses if fn succeeds
	MutateOffer(ctx context.Context, eventID uuid.UUID, code string, fn func(offer *events.PromoOffer) error) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOffer(ctx context.Context, eventID uuid.UUID, code string) (*events.PromoOffer, error) {
	var offer events.PromoOffer
	err := r.db.WithContext(ctx).Where("event_id = ? AND code = ?", eventID, code).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &PromoError{Code: code, Kind: ErrPromoNotFound}
		}
		return nil, fmt.Errorf("failed to get promo offer: %w", err)
	}
	return &offer, nil
}

func (r *repository) MutateOffer(ctx context.Context, eventID uuid.UUID, code string, fn func(offer *events.PromoOffer) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var offer events.PromoOffer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ? AND code = ?", eventID, code).
			First(&offer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &PromoError{Code: code, Kind: ErrPromoNotFound}
			}
			return fmt.Errorf("failed to lock promo offer: %w", err)
		}

		prevUses := offer.CurrentUses
		if err := fn(&offer); err != nil {
			return err
		}
		if offer.CurrentUses == prevUses {
			return nil
		}

		if err := tx.Model(&events.PromoOffer{}).Where("id = ?", offer.ID).
			Update("current_uses", offer.CurrentUses).Error; err != nil {
			return fmt.Errorf("failed to update promo usage: %w", err)
		}
		return nil
	})
}
