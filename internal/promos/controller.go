package promos

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/shared/utils/response"
)

type Controller interface {
	PreviewPromo(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) PreviewPromo(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	amount := decimal.Zero
	if raw := c.Query("amount"); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil || amount.IsNegative() {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid amount", nil, nil)
			return
		}
	}

	preview, err := ctrl.service.Preview(c.Request.Context(), eventID, c.Param("code"), amount)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrPromoNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrPromoInactive), errors.Is(err, ErrPromoOutOfWindow), errors.Is(err, ErrPromoExhausted):
			status = http.StatusUnprocessableEntity
		}
		response.RespondJSON(c, "error", status, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Promo code is valid", preview, nil)
}
