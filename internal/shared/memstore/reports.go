package memstore

import (
	"context"
	"time"

	"ticketing/internal/occupancy"
	"ticketing/internal/reporting"
)

type reportRepo struct {
	s *Store
}

func (r *reportRepo) GetByDate(_ context.Context, day time.Time) (*reporting.UtilizationRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.utilization[occupancy.ISODate(day)]
	if !ok {
		return nil, reporting.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (r *reportRepo) Upsert(_ context.Context, record *reporting.UtilizationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := occupancy.ISODate(record.Date)
	now := r.s.now()
	if existing, ok := r.s.utilization[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	r.s.utilization[key] = copyRecord(record)
	return nil
}

func copyRecord(rec *reporting.UtilizationRecord) *reporting.UtilizationRecord {
	cp := *rec
	cp.EventIDs = append(cp.EventIDs[:0:0], rec.EventIDs...)
	return &cp
}
