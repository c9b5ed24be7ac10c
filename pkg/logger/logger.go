package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with the reservation engine's audit events.
type Logger struct {
	*slog.Logger
}

// Options selects level and encoding. An empty Format picks text under gin's
// debug mode and JSON otherwise.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logger whose records carry the request and user ids stored in
// the context by WithRequestID and WithUserID.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := parseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "json"
		if gin.Mode() == gin.DebugMode {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}
	return NewWithHandler(handler)
}

// NewWithHandler wraps an existing slog handler
func NewWithHandler(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(contextHandler{handler})}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// WithRequestID returns a context whose log records include request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID returns a context whose log records include user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestID reads the id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("user_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// LogHTTPRequest logs a finished request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	level := slog.LevelInfo
	switch status := c.Writer.Status(); {
	case status >= 500:
		level = slog.LevelError
	case status == 409 || status == 429:
		level = slog.LevelWarn
	}
	l.Logger.LogAttrs(c.Request.Context(), level,
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("route", c.FullPath()),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

func (l *Logger) LogEventCreated(ctx context.Context, eventID, organizerID string) {
	l.Logger.InfoContext(ctx,
		"Event Created",
		slog.String("event_id", eventID),
		slog.String("organizer_id", organizerID),
	)
}

func (l *Logger) LogOrderCreated(ctx context.Context, orderID, eventID, userID string, waitlist bool) {
	l.Logger.InfoContext(ctx,
		"Order Created",
		slog.String("order_id", orderID),
		slog.String("event_id", eventID),
		slog.String("buyer_id", userID),
		slog.Bool("waitlist", waitlist),
	)
}

func (l *Logger) LogOrderCancelled(ctx context.Context, orderID, eventID, requesterID string, seatsReleased int) {
	l.Logger.InfoContext(ctx,
		"Order Cancelled",
		slog.String("order_id", orderID),
		slog.String("event_id", eventID),
		slog.String("requester_id", requesterID),
		slog.Int("seats_released", seatsReleased),
	)
}

// LogSeatConflict records a rejected reservation; these are expected under
// contention and logged at warn.
func (l *Logger) LogSeatConflict(ctx context.Context, ticketTypeID string, reason error) {
	l.Logger.WarnContext(ctx,
		"Seat Reservation Rejected",
		slog.String("ticket_type_id", ticketTypeID),
		slog.String("reason", reason.Error()),
	)
}

func (l *Logger) LogWaitlistOpened(ctx context.Context, eventID string, tickets, recipients int) {
	l.Logger.InfoContext(ctx,
		"Waitlist Opened",
		slog.String("event_id", eventID),
		slog.Int("tickets", tickets),
		slog.Int("recipients", recipients),
	)
}

func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

var defaultLogger = New(Options{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})

// GetDefault returns the process-wide logger
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide logger
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
