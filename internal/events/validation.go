package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

var hundred = decimal.NewFromInt(100)

// ValidateCreateEvent checks an event definition before anything is persisted
func ValidateCreateEvent(req CreateEventRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Namespace(), Reason: "failed " + verrs[0].Tag()}
		}
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	names := make(map[string]struct{}, len(req.TicketTypes))
	for i, tt := range req.TicketTypes {
		field := fmt.Sprintf("ticket_types[%d]", i)
		key := strings.ToLower(strings.TrimSpace(tt.Name))
		if _, dup := names[key]; dup {
			return &ValidationError{Field: field + ".name", Reason: "is duplicated"}
		}
		names[key] = struct{}{}

		if tt.Price.IsNegative() {
			return &ValidationError{Field: field + ".price", Reason: "must not be negative"}
		}
		if tt.Rows*tt.Columns < tt.Quantity {
			return &ValidationError{Field: field + ".quantity", Reason: "exceeds seat grid size"}
		}
		if !tt.SaleStart.IsZero() && !tt.SaleEnd.IsZero() && !tt.SaleEnd.After(tt.SaleStart) {
			return &ValidationError{Field: field + ".sale_end", Reason: "must be after sale_start"}
		}
	}

	codes := make(map[string]struct{}, len(req.PromoOffers))
	for i, po := range req.PromoOffers {
		field := fmt.Sprintf("promo_offers[%d]", i)
		if _, dup := codes[po.Code]; dup {
			return &ValidationError{Field: field + ".code", Reason: "is duplicated"}
		}
		codes[po.Code] = struct{}{}

		if !po.DiscountValue.IsPositive() {
			return &ValidationError{Field: field + ".discount_value", Reason: "must be positive"}
		}
		if po.DiscountType == DiscountPercentage && po.DiscountValue.GreaterThan(hundred) {
			return &ValidationError{Field: field + ".discount_value", Reason: "must not exceed 100 percent"}
		}
		if !po.ValidUntil.After(po.ValidFrom) {
			return &ValidationError{Field: field + ".valid_until", Reason: "must be after valid_from"}
		}
	}

	return nil
}
