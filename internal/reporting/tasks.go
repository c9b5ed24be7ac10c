package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"ticketing/internal/occupancy"
	"ticketing/pkg/logger"
)

const (
	TypeUtilizationRebuild = "utilization:rebuild"
	QueueReports           = "reports"
)

// UtilizationRebuildPayload carries the day to rebuild. An empty date means yesterday.
type UtilizationRebuildPayload struct {
	Date string `json:"date"`
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewUtilizationRebuildTask(date string) (*asynq.Task, error) {
	payload, err := json.Marshal(UtilizationRebuildPayload{Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rebuild payload: %w", err)
	}
	return asynq.NewTask(TypeUtilizationRebuild, payload, asynq.Queue(QueueReports), asynq.MaxRetry(3)), nil
}

type TaskHandler struct {
	service Service
	now     func() time.Time
}

func NewTaskHandler(service Service) *TaskHandler {
	return &TaskHandler{service: service, now: time.Now}
}

func (h *TaskHandler) HandleUtilizationRebuild(ctx context.Context, t *asynq.Task) error {
	var p UtilizationRebuildPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	now := h.now()
	day := StartOfDay(now).Add(-24 * time.Hour)
	if p.Date != "" {
		parsed, err := ParseDate(p.Date)
		if err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		day = parsed
	}

	record, err := h.service.RebuildUtilization(ctx, day, now)
	if err != nil {
		logger.GetDefault().ErrorContext(ctx, "Utilization rebuild failed",
			slog.String("date", occupancy.ISODate(day)),
			slog.String("error", err.Error()))
		return err
	}

	logger.GetDefault().DebugContext(ctx, "Utilization rebuild task done",
		slog.String("date", occupancy.ISODate(record.Date)))
	return nil
}

// RegisterHandlers mounts the reporting task handlers on mux
func RegisterHandlers(mux *asynq.ServeMux, h *TaskHandler) {
	mux.HandleFunc(TypeUtilizationRebuild, h.HandleUtilizationRebuild)
}

// RegisterSchedule runs the nightly rebuild of yesterday's record on cronspec
func RegisterSchedule(scheduler *asynq.Scheduler, cronspec string) (string, error) {
	task, err := NewUtilizationRebuildTask("")
	if err != nil {
		return "", err
	}
	entryID, err := scheduler.Register(cronspec, task)
	if err != nil {
		return "", fmt.Errorf("failed to register utilization schedule: %w", err)
	}
	return entryID, nil
}
