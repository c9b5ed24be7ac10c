package promos

import (
	"errors"
	"fmt"
)

var (
	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo code is inactive")
	ErrPromoOutOfWindow = errors.New("promo code is outside its validity window")
	ErrPromoExhausted   = errors.New("promo code has no uses left")
)

// PromoError names the code that failed and why
type PromoError struct {
	Code string
	Kind error
}

func (e *PromoError) Error() string {
	return fmt.Sprintf("%s: %q", e.Kind, e.Code)
}

func (e *PromoError) Unwrap() error {
	return e.Kind
}
