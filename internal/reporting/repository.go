package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetByDate(ctx context.Context, day time.Time) (*UtilizationRecord, error)
	Upsert(ctx context.Context, record *UtilizationRecord) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByDate(ctx context.Context, day time.Time) (*UtilizationRecord, error) {
	var rec UtilizationRecord
	if err := r.db.WithContext(ctx).Where("date = ?", day.Format("2006-01-02")).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get utilization record: %w", err)
	}
	return &rec, nil
}

func (r *repository) Upsert(ctx context.Context, record *UtilizationRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_hours_used", "total_hours_available", "event_ids", "estimated", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save utilization record: %w", err)
	}
	return nil
}
