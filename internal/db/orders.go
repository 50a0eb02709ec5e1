package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garmentrack/garmentrack/internal/models"
)

// OrderFilter narrows List. Zero values do not filter.
type OrderFilter struct {
	BuyerEmail string
	// ProductOwner keeps orders for products created by this email.
	ProductOwner     string
	Statuses         []models.OrderStatus
	ExcludeCancelled bool
	Limit            int
}

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, buyer_email, buyer_name, contact_number, delivery_address, notes,
	product_id, product_name, unit_price_cents, quantity, total_cents,
	status, payment_status, payment_option, location, latitude, longitude,
	created_at, approved_at`

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	lat, lng := coordinateArgs(order.Coordinates)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO orders (
			buyer_email, buyer_name, contact_number, delivery_address, notes,
			product_id, product_name, unit_price_cents, quantity, total_cents,
			status, payment_status, payment_option, location, latitude, longitude, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`,
		order.BuyerEmail, order.BuyerName, order.ContactNumber, order.DeliveryAddress, order.Notes,
		order.ProductID, order.ProductName, order.UnitPriceCents, order.Quantity, order.TotalCents,
		order.Status, order.PaymentStatus, order.PaymentOption, order.Location, lat, lng, createdAtArg(order.CreatedAt),
	)
	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", translate(err))
	}
	if order.TrackingHistory == nil {
		order.TrackingHistory = []models.TrackingEvent{}
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, translate(err)
	}
	if err := s.loadHistory(ctx, s.pool, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders newest first with their tracking history.
func (s *OrderStore) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.BuyerEmail != "" {
		clauses = append(clauses, "lower(buyer_email) = lower("+arg(filter.BuyerEmail)+")")
	}
	if filter.ProductOwner != "" {
		clauses = append(clauses, "product_id IN (SELECT id FROM products WHERE lower(created_by) = lower("+arg(filter.ProductOwner)+"))")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		clauses = append(clauses, "status = ANY("+arg(statuses)+")")
	}
	if filter.ExcludeCancelled {
		clauses = append(clauses, "status <> "+arg(string(models.StatusCancelled)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadHistory(ctx, s.pool, orders); err != nil {
		return nil, err
	}

	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		result = append(result, *order)
	}
	return result, nil
}

// UpdateStatus moves the order from expected to order.Status and persists
// approved_at. A concurrent writer that changed the status first wins.
func (s *OrderStore) UpdateStatus(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, approved_at = $2
		WHERE id = $3 AND status = $4
	`, order.Status, nullableTime(order.ApprovedAt), order.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return s.missingOrStale(ctx, order.ID, expected)
	}
	return nil
}

// AppendTracking stores event and the order's derived status, location and
// coordinates in one transaction.
func (s *OrderStore) AppendTracking(ctx context.Context, order *models.Order, expected models.OrderStatus, event models.TrackingEvent) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current models.OrderStatus
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, order.ID).Scan(&current)
	if err != nil {
		return translate(err)
	}
	if current != expected {
		return fmt.Errorf("%w: expected %s, found %s", ErrInvalidStatusTransition, expected, current)
	}

	lat, lng := coordinateArgs(order.Coordinates)
	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, location = $2, latitude = $3, longitude = $4
		WHERE id = $5
	`, order.Status, order.Location, lat, lng, order.ID); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_tracking_events (order_id, status, location, note, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, event.Status, event.Location, event.Note, event.Image, event.Time); err != nil {
		return fmt.Errorf("failed to insert tracking event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tracking event: %w", err)
	}
	return nil
}

func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1
		WHERE id = $2 AND status NOT IN ($3, $4)
	`, models.PaymentPaid, orderID, models.StatusRejected, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("%w: expected an open order", ErrInvalidStatusTransition)
	}
	return nil
}

func (s *OrderStore) missingOrStale(ctx context.Context, orderID uuid.UUID, expected models.OrderStatus) error {
	var current string
	err := s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
	if err != nil {
		return translate(err)
	}
	return fmt.Errorf("%w: expected %s, found %s", ErrInvalidStatusTransition, expected, current)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *OrderStore) loadHistory(ctx context.Context, q querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for _, order := range orders {
		order.TrackingHistory = []models.TrackingEvent{}
		ids = append(ids, order.ID)
		byID[order.ID] = order
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, status, location, note, image, created_at
		FROM order_tracking_events
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load tracking history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			event   models.TrackingEvent
		)
		if err := rows.Scan(&orderID, &event.Status, &event.Location, &event.Note, &event.Image, &event.Time); err != nil {
			return err
		}
		if order, ok := byID[orderID]; ok {
			order.TrackingHistory = append(order.TrackingHistory, event)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order      models.Order
		lat, lng   *float64
		approvedAt *time.Time
	)
	err := row.Scan(
		&order.ID, &order.BuyerEmail, &order.BuyerName, &order.ContactNumber, &order.DeliveryAddress, &order.Notes,
		&order.ProductID, &order.ProductName, &order.UnitPriceCents, &order.Quantity, &order.TotalCents,
		&order.Status, &order.PaymentStatus, &order.PaymentOption, &order.Location, &lat, &lng,
		&order.CreatedAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		order.Coordinates = &models.Coordinates{Lat: *lat, Lng: *lng}
	}
	if approvedAt != nil {
		order.ApprovedAt = *approvedAt
	}
	return &order, nil
}

func coordinateArgs(coords *models.Coordinates) (any, any) {
	if coords == nil || !coords.Valid() {
		return nil, nil
	}
	return coords.Lat, coords.Lng
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func createdAtArg(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
