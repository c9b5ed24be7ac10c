package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSeatReservationCounter(t *testing.T) {
	before := testutil.ToFloat64(seatReservations.WithLabelValues("success"))
	SeatReservation(Outcome(nil))
	SeatReservation(Outcome(nil))
	assert.Equal(t, before+2, testutil.ToFloat64(seatReservations.WithLabelValues("success")))
}

func TestSeatsReleased_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(seatReleases)
	SeatsReleased(0)
	SeatsReleased(3)
	assert.Equal(t, before+3, testutil.ToFloat64(seatReleases))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "rejected", Outcome(errors.New("seat taken")))
}

func TestObserveCriticalSection(t *testing.T) {
	ObserveCriticalSection("promo_offer", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(criticalSection, "ticketing_critical_section_duration_seconds"))
}

func TestRecordCacheLookup_GroupsByKeyspace(t *testing.T) {
	hits := cacheLookups.WithLabelValues("ticketing:seats:map", "hit")
	misses := cacheLookups.WithLabelValues("ticketing:seats:map", "miss")
	beforeHits, beforeMisses := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	RecordCacheLookup("ticketing:seats:map:tt-1", true)
	RecordCacheLookup("ticketing:seats:map:tt-2", false)

	assert.Equal(t, beforeHits+1, testutil.ToFloat64(hits))
	assert.Equal(t, beforeMisses+1, testutil.ToFloat64(misses))
}
