package waitlist

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"
)

// Controller handles HTTP requests for waitlist operations
type Controller interface {
	OpenWaitlist(c *gin.Context)
	ListWaitlistTickets(c *gin.Context)
	JoinWaitlist(c *gin.Context)
	LeaveWaitlist(c *gin.Context)
}

type controller struct {
	service Service
}

// NewController creates a new waitlist controller
func NewController(service Service) Controller {
	return &controller{service: service}
}

// OpenWaitlist issues a fresh batch of waitlist tickets for a sold-out event
func (ctrl *controller) OpenWaitlist(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var req OpenWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalidBody(c, err)
		return
	}

	tickets, err := ctrl.service.Open(c.Request.Context(), eventID, userID, req.Tickets)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Waitlist tickets issued", tickets, nil)
}

func (ctrl *controller) ListWaitlistTickets(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	tickets, err := ctrl.service.ListTickets(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Waitlist tickets retrieved", tickets, nil)
}

func (ctrl *controller) JoinWaitlist(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondInvalidBody(c, err)
		return
	}
	email := req.Email
	if email == "" {
		email = middleware.CurrentUserEmail(c)
	}

	reg, err := ctrl.service.Join(c.Request.Context(), userID, eventID, email, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Joined waiting list", reg, nil)
}

func (ctrl *controller) LeaveWaitlist(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
		return
	}

	if err := ctrl.service.Leave(c.Request.Context(), userID, eventID); err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Left waiting list", nil, nil)
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrWaitlistTicketNotFound), errors.Is(err, ErrRegistrationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidSpecs), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnknownOriginalTicket):
		status = http.StatusBadRequest
	case errors.Is(err, ErrNotEligible), errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrInsufficientStock):
		status = http.StatusConflict
	}
	response.RespondJSON(c, "error", status, err.Error(), nil, nil)
}
