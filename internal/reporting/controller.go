package reporting

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"ticketing/internal/events"
	"ticketing/internal/occupancy"
	"ticketing/internal/shared/utils/response"
)

type Controller interface {
	GetEventOccupancy(c *gin.Context)
	GetUtilization(c *gin.Context)
	RebuildUtilization(c *gin.Context)
}

type controller struct {
	service  Service
	enqueuer Enqueuer
	now      func() time.Time
}

// NewController builds the reports controller. A nil enqueuer makes rebuilds run inline.
func NewController(service Service, enqueuer Enqueuer) Controller {
	return &controller{service: service, enqueuer: enqueuer, now: time.Now}
}

func (ctrl *controller) GetEventOccupancy(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	report, err := ctrl.service.EventOccupancy(c.Request.Context(), eventID, ctrl.now())
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, "Event not found", nil, nil)
			return
		}
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to build occupancy report", nil, err.Error())
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Occupancy report generated", report, nil)
}

func (ctrl *controller) GetUtilization(c *gin.Context) {
	day, ok := ctrl.dayParam(c)
	if !ok {
		return
	}

	report, err := ctrl.service.Utilization(c.Request.Context(), day, ctrl.now())
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to build utilization report", nil, err.Error())
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Utilization report generated", report, nil)
}

func (ctrl *controller) RebuildUtilization(c *gin.Context) {
	day, ok := ctrl.dayParam(c)
	if !ok {
		return
	}
	if ctrl.enqueuer != nil {
		info, err := ctrl.enqueue(c, day)
		if err != nil {
			response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to queue utilization rebuild", nil, err.Error())
			return
		}
		response.RespondJSON(c, "success", http.StatusAccepted, "Utilization rebuild queued", gin.H{"task_id": info.ID, "queue": info.Queue}, nil)
		return
	}

	record, err := ctrl.service.RebuildUtilization(c.Request.Context(), day, ctrl.now())
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to rebuild utilization", nil, err.Error())
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Utilization rebuilt", record, nil)
}

func (ctrl *controller) enqueue(c *gin.Context, day time.Time) (*asynq.TaskInfo, error) {
	task, err := NewUtilizationRebuildTask(occupancy.ISODate(day))
	if err != nil {
		return nil, err
	}
	return ctrl.enqueuer.EnqueueContext(c.Request.Context(), task)
}

// dayParam reads ?date=, defaulting to today
func (ctrl *controller) dayParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return StartOfDay(ctrl.now()), true
	}
	day, err := ParseDate(raw)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
		return time.Time{}, false
	}
	return day, true
}
