package orders

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// MutateOrder runs fn with the order row locked and saves status changes if fn succeeds
	MutateOrder(ctx context.Context, id uuid.UUID, fn func(order *Order) error) (*Order, error)
	HasActiveWaitlistOrder(ctx context.Context, userID, eventID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]Order, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		// uniq_active_waitlist_order is the only unique index an insert can hit
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateWaitlistOrder
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *repository) MutateOrder(ctx context.Context, id uuid.UUID, fn func(order *Order) error) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if err := fn(&order); err != nil {
			return err
		}

		return tx.Model(&Order{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":       order.Status,
			"cancelled_at": order.CancelledAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HasActiveWaitlistOrder(ctx context.Context, userID, eventID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Order{}).
		Where("user_id = ? AND event_id = ? AND is_waitlist = ? AND status <> ?", userID, eventID, true, StatusCancelled).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check waitlist orders: %w", err)
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]Order, int64, error) {
	var (
		orders     []Order
		totalCount int64
	)

	baseQuery := r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * limit
	if err := baseQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, totalCount, nil
}

func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
