package reporting

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

const HoursPerDay = 24.0

var (
	ErrRecordNotFound = errors.New("utilization record not found")
	ErrInvalidDate    = errors.New("date must be formatted as YYYY-MM-DD")
)

// UtilizationRecord is the cached daily utilization of the venue
type UtilizationRecord struct {
	ID                  uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Date                time.Time   `json:"date" gorm:"type:date;not null;uniqueIndex"`
	TotalHoursUsed      float64     `json:"total_hours_used" gorm:"not null;default:0"`
	TotalHoursAvailable float64     `json:"total_hours_available" gorm:"not null;default:24"`
	EventIDs            []uuid.UUID `json:"event_ids" gorm:"type:jsonb;serializer:json"`
	Estimated           bool        `json:"estimated" gorm:"not null;default:false"`
	CreatedAt           time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

func (UtilizationRecord) TableName() string {
	return "utilization_records"
}

// IsAuthoritative reports real, non-zero data that an estimate must never replace
func (r *UtilizationRecord) IsAuthoritative() bool {
	return !r.Estimated && r.TotalHoursUsed > 0
}

func (r *UtilizationRecord) Percent() float64 {
	if r.TotalHoursAvailable <= 0 {
		return 0
	}
	return round2(r.TotalHoursUsed / r.TotalHoursAvailable * 100)
}

type OccupancyReport struct {
	EventID          uuid.UUID `json:"event_id"`
	EventName        string    `json:"event_name"`
	EventDate        time.Time `json:"event_date"`
	TotalSeats       int       `json:"total_seats"`
	BookedSeats      int       `json:"booked_seats"`
	OccupancyPercent float64   `json:"occupancy_percent"`
	Estimated        bool      `json:"estimated"`
}

type UtilizationReport struct {
	Date                string      `json:"date"`
	TotalHoursUsed      float64     `json:"total_hours_used"`
	TotalHoursAvailable float64     `json:"total_hours_available"`
	UtilizationPercent  float64     `json:"utilization_percent"`
	EventIDs            []uuid.UUID `json:"event_ids"`
	Estimated           bool        `json:"estimated"`
}

// ParseDate reads a YYYY-MM-DD day as UTC midnight
func ParseDate(s string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

// StartOfDay truncates t to its UTC calendar day
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
