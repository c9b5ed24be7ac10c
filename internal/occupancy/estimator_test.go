package occupancy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHash_KnownValues(t *testing.T) {
	assert.Equal(t, int32(0), Hash(""))
	assert.Equal(t, int32(97), Hash("a"))
	assert.Equal(t, int32(3105), Hash("ab"))
	assert.Equal(t, int32(99162322), Hash("hello"))
	// surrogate pair counts as two code units
	assert.Equal(t, int32(1772899), Hash("😀"))
}

func TestHash_WrapsToMinInt32(t *testing.T) {
	h := Hash("polygenelubricants")
	assert.Equal(t, int32(math.MinInt32), h)
	assert.Equal(t, 1.0, normalize(h))
}

func TestEstimateOccupancy_Deterministic(t *testing.T) {
	date := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)

	first := EstimateOccupancy("Tech Summit", date)
	second := EstimateOccupancy("Tech Summit", date)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, MinOccupancy)
	assert.LessOrEqual(t, first, MaxOccupancy)
}

func TestEstimateOccupancy_UsesCalendarDayOnly(t *testing.T) {
	morning := time.Date(2025, 4, 20, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 4, 20, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, EstimateOccupancy("Jazz Night", morning), EstimateOccupancy("Jazz Night", evening))
}

func TestEstimateOccupancy_MatchesFormula(t *testing.T) {
	date := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	h := Hash("Tech Summit-2025-04-20")
	want := 10 + math.Abs(float64(h))/math.Pow(2, 31)*75

	assert.InDelta(t, want, EstimateOccupancy("Tech Summit", date), 1e-9)
}

func TestEstimateOccupancy_RangeOverManyInputs(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		v := EstimateOccupancy("Event", start.AddDate(0, 0, i))
		assert.GreaterOrEqual(t, v, MinOccupancy)
		assert.LessOrEqual(t, v, MaxOccupancy)
	}
}

func TestEstimateUtilization_WeekendAndWeekdayBands(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		d := start.AddDate(0, 0, i)
		v := EstimateUtilization(d)

		assert.GreaterOrEqual(t, v, MinUtilization)
		assert.LessOrEqual(t, v, MaxUtilization)
		if isWeekend(d) {
			assert.GreaterOrEqual(t, v, 55.0, ISODate(d))
		} else {
			assert.Less(t, v, 60.0, ISODate(d))
		}
	}
}

func TestEstimateUtilization_Deterministic(t *testing.T) {
	d := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, EstimateUtilization(d), EstimateUtilization(d))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 30.0, clamp(12, 30, 79))
	assert.Equal(t, 79.0, clamp(80, 30, 79))
	assert.Equal(t, 50.5, clamp(50.5, 30, 79))
}
