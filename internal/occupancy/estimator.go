// Package occupancy produces reproducible stand-in figures for reporting when
// real booking data is missing, zero, or refers to a date that has not happened yet.
//
// Every figure here is a pure function of its inputs so projected numbers stay
// stable across processes and restarts.
package occupancy

import (
	"time"
	"unicode/utf16"
)

const (
	MinOccupancy = 10.0
	MaxOccupancy = 85.0

	MinUtilization = 30.0
	MaxUtilization = 79.0

	isoDateLayout = "2006-01-02"
	twoPow31      = float64(1 << 31)
)

// Hash is the 32-bit multiply-by-31 rolling hash over UTF-16 code units,
// wrapping on overflow.
func Hash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	return h
}

// ISODate renders the calendar day of t in UTC as YYYY-MM-DD.
func ISODate(t time.Time) string {
	return t.UTC().Format(isoDateLayout)
}

// EstimateOccupancy returns a fill percentage in [10, 85] for an event name on a date.
func EstimateOccupancy(name string, date time.Time) float64 {
	u := normalize(Hash(name + "-" + ISODate(date)))
	return MinOccupancy + u*(MaxOccupancy-MinOccupancy)
}

// EstimateUtilization returns a venue-day utilization percentage in [30, 79].
func EstimateUtilization(date time.Time) float64 {
	d := date.UTC()

	base := 40.0
	if isWeekend(d) {
		base = 60.0
	}
	dateVariation := float64(d.Day()) / 31 * 15
	randomFactor := float64(absInt64(Hash(ISODate(d)))%1000) / 1000 * 10

	return clamp(base+dateVariation+randomFactor-5, MinUtilization, MaxUtilization)
}

// normalize maps a hash to [0, 1]. MinInt32 is the only input that reaches 1.
func normalize(h int32) float64 {
	return float64(absInt64(h)) / twoPow31
}

func absInt64(h int32) int64 {
	v := int64(h)
	if v < 0 {
		return -v
	}
	return v
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
