package promos

import (
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/events"
)

var hundred = decimal.NewFromInt(100)

// Preview is what a code would take off an amount right now
type Preview struct {
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	DiscountType  events.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	Amount        decimal.Decimal     `json:"amount"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	UsesLeft      int                 `json:"uses_left"`
	ValidUntil    time.Time           `json:"valid_until"`
}

// Discount computes the reduction an offer gives on total. It never exceeds total.
func Discount(offer *events.PromoOffer, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch offer.DiscountType {
	case events.DiscountPercentage:
		discount = total.Mul(offer.DiscountValue).Div(hundred).Round(2)
	case events.DiscountFixed:
		discount = offer.DiscountValue
	}

	if discount.GreaterThan(total) {
		return total
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// checkOffer applies the redeemability rules: active, inside [ValidFrom, ValidUntil], uses left
func checkOffer(offer *events.PromoOffer, now time.Time) error {
	if !offer.Active {
		return &PromoError{Code: offer.Code, Kind: ErrPromoInactive}
	}
	if now.Before(offer.ValidFrom) || now.After(offer.ValidUntil) {
		return &PromoError{Code: offer.Code, Kind: ErrPromoOutOfWindow}
	}
	if offer.CurrentUses >= offer.MaxUses {
		return &PromoError{Code: offer.Code, Kind: ErrPromoExhausted}
	}
	return nil
}
