package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"ticketing/internal/orders"
)

type orderRepo struct {
	s *Store
}

func (r *orderRepo) Create(_ context.Context, order *orders.Order) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IsWaitlist && order.Status != orders.StatusCancelled {
		if s.hasActiveWaitlistOrder(order.UserID, order.EventID) {
			return orders.ErrDuplicateWaitlistOrder
		}
	}

	now := s.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	s.orders[order.ID] = order.Clone()
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *orderRepo) MutateOrder(_ context.Context, id uuid.UUID, fn func(order *orders.Order) error) (*orders.Order, error) {
	s := r.s
	unlock := s.lock("order", id)
	defer unlock()

	s.mu.RLock()
	stored, ok := s.orders[id]
	var order *orders.Order
	if ok {
		order = stored.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, orders.ErrOrderNotFound
	}

	if err := fn(order); err != nil {
		return nil, err
	}

	s.mu.Lock()
	order.UpdatedAt = s.now()
	s.orders[id] = order.Clone()
	s.mu.Unlock()
	return order, nil
}

func (r *orderRepo) HasActiveWaitlistOrder(_ context.Context, userID, eventID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.hasActiveWaitlistOrder(userID, eventID), nil
}

func (r *orderRepo) ListByUser(_ context.Context, userID uuid.UUID, page, limit int) ([]orders.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []orders.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			all = append(all, *o.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return []orders.Order{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

// hasActiveWaitlistOrder mirrors the uniq_active_waitlist_order index. Callers hold mu.
func (s *Store) hasActiveWaitlistOrder(userID, eventID uuid.UUID) bool {
	for _, o := range s.orders {
		if o.UserID == userID && o.EventID == eventID && o.IsWaitlist && o.Status != orders.StatusCancelled {
			return true
		}
	}
	return false
}
