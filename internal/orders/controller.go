package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing/internal/events"
	"ticketing/internal/promos"
	"ticketing/internal/seats"
	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"
	"ticketing/internal/waitlist"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateOrder handles POST /api/v1/orders
func (ctrl *Controller) CreateOrder(c *gin.Context) {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalidBody(c, err)
		return
	}

	order, err := ctrl.service.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Order confirmed", order, nil)
}

// GetOrder handles GET /api/v1/orders/:id?expand=event
func (ctrl *Controller) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid order ID", nil, err.Error())
		return
	}

	userID, role, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	view, err := ctrl.service.GetOrder(c.Request.Context(), orderID, userID, role.IsAdmin(), c.Query("expand") == "event")
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Order retrieved successfully", view, nil)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func (ctrl *Controller) CancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid order ID", nil, err.Error())
		return
	}

	userID, role, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	order, err := ctrl.service.CancelOrder(c.Request.Context(), orderID, userID, role.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Order cancelled successfully", order, nil)
}

// ListUserOrders handles GET /api/v1/users/orders
func (ctrl *Controller) ListUserOrders(c *gin.Context) {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, response.BindErrors(err))
		return
	}

	result, err := ctrl.service.ListUserOrders(c.Request.Context(), userID, query)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Orders retrieved successfully", result, nil)
}

// respondError maps reservation failures to status codes. Not-yours and no-such-order stay distinct.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, events.ErrEventNotFound),
		errors.Is(err, events.ErrTicketTypeNotFound),
		errors.Is(err, waitlist.ErrWaitlistTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrEmptyLines),
		errors.Is(err, ErrQuantityMismatch),
		errors.Is(err, ErrMixedLines),
		errors.Is(err, ErrWaitlistSeats),
		errors.Is(err, seats.ErrNoSeats),
		errors.Is(err, seats.ErrOutOfRange),
		errors.Is(err, waitlist.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrDuplicateWaitlistOrder),
		errors.Is(err, seats.ErrAlreadyBooked),
		errors.Is(err, seats.ErrCapacityExceeded),
		errors.Is(err, waitlist.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, ErrEventNotOnSale),
		errors.Is(err, seats.ErrNotOnSale),
		errors.Is(err, promos.ErrPromoExhausted):
		status = http.StatusUnprocessableEntity
	}
	response.RespondJSON(c, "error", status, err.Error(), nil, nil)
}
