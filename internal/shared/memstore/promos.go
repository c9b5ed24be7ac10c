package memstore

import (
	"context"

	"github.com/google/uuid"

	"ticketing/internal/events"
	"ticketing/internal/promos"
)

type promoRepo struct {
	s *Store
}

var _ promos.Repository = (*promoRepo)(nil)

func (r *promoRepo) GetOffer(_ context.Context, eventID uuid.UUID, code string) (*events.PromoOffer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	offer, ok := r.s.promos[promoKey{eventID, code}]
	if !ok {
		return nil, &promos.PromoError{Code: code, Kind: promos.ErrPromoNotFound}
	}
	cp := *offer
	return &cp, nil
}

func (r *promoRepo) MutateOffer(_ context.Context, eventID uuid.UUID, code string, fn func(offer *events.PromoOffer) error) error {
	s := r.s
	lockKey := "promo:" + eventID.String() + ":" + code
	s.locks.Lock(lockKey)
	defer func() { _ = s.locks.Unlock(lockKey) }()

	k := promoKey{eventID, code}
	s.mu.RLock()
	stored, ok := s.promos[k]
	var offer events.PromoOffer
	if ok {
		offer = *stored
	}
	s.mu.RUnlock()
	if !ok {
		return &promos.PromoError{Code: code, Kind: promos.ErrPromoNotFound}
	}

	if err := fn(&offer); err != nil {
		return err
	}

	s.mu.Lock()
	s.promos[k].CurrentUses = offer.CurrentUses
	s.mu.Unlock()
	return nil
}
