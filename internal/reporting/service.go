package reporting

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/events"
	"ticketing/internal/occupancy"
	"ticketing/internal/shared/constants"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"
)

// Catalog is the slice of the event catalog that reports read from
type Catalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*events.Event, error)
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]events.Event, error)
}

type Service interface {
	SetCacheService(cacheService cache.Service)
	SetCacheTTL(ttl time.Duration)
	EventOccupancy(ctx context.Context, eventID uuid.UUID, now time.Time) (*OccupancyReport, error)
	Utilization(ctx context.Context, day, now time.Time) (*UtilizationReport, error)
	// RebuildUtilization recomputes the stored record for day from the events held on it
	RebuildUtilization(ctx context.Context, day, now time.Time) (*UtilizationRecord, error)
}

type service struct {
	repo         Repository
	catalog      Catalog
	cacheService cache.Service
	cacheTTL     time.Duration
}

func NewService(repo Repository, catalog Catalog) Service {
	return &service{
		repo:     repo,
		catalog:  catalog,
		cacheTTL: constants.TTL_REPORT,
	}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

func (s *service) EventOccupancy(ctx context.Context, eventID uuid.UUID, now time.Time) (*OccupancyReport, error) {
	event, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	report := &OccupancyReport{
		EventID:     event.ID,
		EventName:   event.Name,
		EventDate:   event.Date,
		TotalSeats:  event.TotalSeats,
		BookedSeats: event.BookedSeatCount(),
	}

	if event.Date.After(now) || report.BookedSeats == 0 || report.TotalSeats == 0 {
		report.OccupancyPercent = round2(occupancy.EstimateOccupancy(event.Name, event.Date))
		report.Estimated = true
		return report, nil
	}

	report.OccupancyPercent = round2(float64(report.BookedSeats) / float64(report.TotalSeats) * 100)
	return report, nil
}

func (s *service) Utilization(ctx context.Context, day, now time.Time) (*UtilizationReport, error) {
	day = StartOfDay(day)
	key := constants.BuildUtilizationReportKey(occupancy.ISODate(day))

	if s.cacheService != nil {
		var cached UtilizationReport
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	report, err := s.utilization(ctx, day, now)
	if err != nil {
		return nil, err
	}

	// estimates for today onwards move as events are scheduled
	live := report.Estimated && !day.Before(StartOfDay(now))
	if s.cacheService != nil && !live {
		if err := s.cacheService.Set(ctx, key, report, s.cacheTTL); err != nil {
			logger.GetDefault().WarnContext(ctx, "Failed to cache utilization report",
				slog.String("date", report.Date),
				slog.String("error", err.Error()))
		}
	}
	return report, nil
}

func (s *service) utilization(ctx context.Context, day, now time.Time) (*UtilizationReport, error) {
	if !day.After(StartOfDay(now)) {
		rec, err := s.repo.GetByDate(ctx, day)
		switch {
		case err == nil && rec.IsAuthoritative():
			return &UtilizationReport{
				Date:                occupancy.ISODate(day),
				TotalHoursUsed:      rec.TotalHoursUsed,
				TotalHoursAvailable: rec.TotalHoursAvailable,
				UtilizationPercent:  rec.Percent(),
				EventIDs:            rec.EventIDs,
			}, nil
		case err != nil && !errors.Is(err, ErrRecordNotFound):
			return nil, err
		}
	}

	pct := round2(occupancy.EstimateUtilization(day))
	return &UtilizationReport{
		Date:                occupancy.ISODate(day),
		TotalHoursUsed:      round2(pct / 100 * HoursPerDay),
		TotalHoursAvailable: HoursPerDay,
		UtilizationPercent:  pct,
		EventIDs:            []uuid.UUID{},
		Estimated:           true,
	}, nil
}

func (s *service) RebuildUtilization(ctx context.Context, day, now time.Time) (*UtilizationRecord, error) {
	day = StartOfDay(day)
	dayEnd := day.Add(24 * time.Hour)

	existing, err := s.repo.GetByDate(ctx, day)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	// events may start the previous day and run past midnight
	list, err := s.catalog.ListEventsBetween(ctx, day.Add(-24*time.Hour), dayEnd)
	if err != nil {
		return nil, err
	}

	var spans []span
	ids := []uuid.UUID{}
	for i := range list {
		start, end := list[i].Date, list[i].EndsAt()
		if start.Before(day) {
			start = day
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		if !end.After(start) {
			continue
		}
		spans = append(spans, span{start, end})
		ids = append(ids, list[i].ID)
	}

	record := &UtilizationRecord{
		ID:                  uuid.New(),
		Date:                day,
		TotalHoursUsed:      round2(mergedHours(spans)),
		TotalHoursAvailable: HoursPerDay,
		EventIDs:            ids,
	}
	if existing != nil {
		record.ID = existing.ID
	}

	if day.After(StartOfDay(now)) || record.TotalHoursUsed == 0 {
		if existing != nil && existing.IsAuthoritative() {
			return existing, nil
		}
		record.TotalHoursUsed = round2(occupancy.EstimateUtilization(day) / 100 * HoursPerDay)
		record.Estimated = true
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.invalidate(ctx, day)
	logger.GetDefault().InfoContext(ctx, "Utilization record rebuilt",
		slog.String("date", occupancy.ISODate(day)),
		slog.Float64("hours_used", record.TotalHoursUsed),
		slog.Int("events", len(ids)),
		slog.Bool("estimated", record.Estimated))
	return record, nil
}

func (s *service) invalidate(ctx context.Context, day time.Time) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildUtilizationReportKey(occupancy.ISODate(day))); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		logger.GetDefault().WarnContext(ctx, "Failed to invalidate utilization cache",
			slog.String("error", err.Error()))
	}
}

type span struct {
	start, end time.Time
}

// mergedHours is the length of the union of spans, so overlapping events count once
func mergedHours(spans []span) float64 {
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	var total time.Duration
	cur := spans[0]
	for _, sp := range spans[1:] {
		if sp.start.After(cur.end) {
			total += cur.end.Sub(cur.start)
			cur = sp
			continue
		}
		if sp.end.After(cur.end) {
			cur.end = sp.end
		}
	}
	total += cur.end.Sub(cur.start)
	return total.Hours()
}
