package constants

import (
	"time"
)

// Redis cache keys and TTLs.
// Pattern: ticketing:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // event details
	TTL_DYNAMIC_MEDIUM     = 10 * time.Minute // reports
	TTL_REALTIME_SHORT     = 30 * time.Second // live seat maps
)

const (
	CACHE_PREFIX = "ticketing"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

const (
	TTL_EVENT_DETAIL = TTL_SEMI_STATIC_MEDIUM
)

// ================== SEATS MODULE ==================

const (
	CACHE_KEY_SEAT_MAP = CACHE_PREFIX + ":seats:map:ticket_type:" // + ticket-type-id
)

const (
	TTL_SEAT_MAP = TTL_REALTIME_SHORT
)

// ================== REPORTING MODULE ==================

const (
	CACHE_KEY_REPORT_UTILIZATION = CACHE_PREFIX + ":reports:utilization:date:" // + YYYY-MM-DD
)

const (
	TTL_REPORT = TTL_DYNAMIC_MEDIUM
)

// ================== HELPER FUNCTIONS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildSeatMapKey(ticketTypeID string) string {
	return CACHE_KEY_SEAT_MAP + ticketTypeID
}

func BuildUtilizationReportKey(date string) string {
	return CACHE_KEY_REPORT_UTILIZATION + date
}
