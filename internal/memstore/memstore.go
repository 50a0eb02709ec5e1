// Package memstore keeps orders, products and users in process memory with
// the same contract as the Postgres stores in internal/db.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	orders   map[uuid.UUID]*models.Order
	products map[uuid.UUID]*models.Product
	users    map[uuid.UUID]*models.User

	Orders   *OrderStore
	Products *ProductStore
	Users    *UserStore
}

func New() *Store {
	s := &Store{
		now:      func() time.Time { return time.Now().UTC() },
		orders:   make(map[uuid.UUID]*models.Order),
		products: make(map[uuid.UUID]*models.Product),
		users:    make(map[uuid.UUID]*models.User),
	}
	s.Orders = &OrderStore{s: s}
	s.Products = &ProductStore{s: s}
	s.Users = &UserStore{s: s}
	return s
}

// SetClock overrides the timestamp source used for created_at defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

type OrderStore struct{ s *Store }

func (o *OrderStore) Create(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	order.ID = uuid.New()
	order.CreatedAt = o.s.stamp(order.CreatedAt)
	if order.TrackingHistory == nil {
		order.TrackingHistory = []models.TrackingEvent{}
	}
	o.s.orders[order.ID] = order.Clone()
	return nil
}

func (o *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	order, ok := o.s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return order.Clone(), nil
}

func (o *OrderStore) List(ctx context.Context, filter db.OrderFilter) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	var owned map[uuid.UUID]bool
	if filter.ProductOwner != "" {
		owned = make(map[uuid.UUID]bool)
		for id, product := range o.s.products {
			if strings.EqualFold(product.CreatedBy, filter.ProductOwner) {
				owned[id] = true
			}
		}
	}

	result := make([]models.Order, 0, len(o.s.orders))
	for _, order := range o.s.orders {
		if filter.BuyerEmail != "" && !strings.EqualFold(order.BuyerEmail, filter.BuyerEmail) {
			continue
		}
		if owned != nil && !owned[order.ProductID] {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, order.Status) {
			continue
		}
		if filter.ExcludeCancelled && order.Status == models.StatusCancelled {
			continue
		}
		result = append(result, *order.Clone())
	}

	slices.SortFunc(result, func(a, b models.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (o *OrderStore) UpdateStatus(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	stored, err := o.s.expectStatus(order.ID, expected)
	if err != nil {
		return err
	}
	stored.Status = order.Status
	stored.ApprovedAt = order.ApprovedAt
	return nil
}

func (o *OrderStore) AppendTracking(ctx context.Context, order *models.Order, expected models.OrderStatus, event models.TrackingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	stored, err := o.s.expectStatus(order.ID, expected)
	if err != nil {
		return err
	}
	stored.Status = order.Status
	stored.Location = order.Location
	stored.Coordinates = nil
	if order.Coordinates != nil && order.Coordinates.Valid() {
		coords := *order.Coordinates
		stored.Coordinates = &coords
	}
	stored.TrackingHistory = append(stored.TrackingHistory, event)
	return nil
}

func (o *OrderStore) MarkPaid(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	stored, ok := o.s.orders[id]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Status == models.StatusRejected || stored.Status == models.StatusCancelled {
		return fmt.Errorf("%w: expected an open order", db.ErrInvalidStatusTransition)
	}
	stored.PaymentStatus = models.PaymentPaid
	return nil
}

func (s *Store) expectStatus(id uuid.UUID, expected models.OrderStatus) (*models.Order, error) {
	stored, ok := s.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if stored.Status != expected {
		return nil, fmt.Errorf("%w: expected %s, found %s", db.ErrInvalidStatusTransition, expected, stored.Status)
	}
	return stored, nil
}
