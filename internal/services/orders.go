package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/events"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/observability"
	"github.com/garmentrack/garmentrack/internal/tracking"
)

const (
	eventProducer      = "garmentrack-api"
	idempotencyPending = "pending"
)

// ErrIdempotencyInFlight is returned while another request holding the same
// idempotency key is still placing its order.
var ErrIdempotencyInFlight = errors.New("an order with this idempotency key is still being placed")

type OrderService struct {
	orders    OrderRepository
	products  ProductRepository
	users     UserRepository
	publisher events.Publisher
	cache     cache.Provider
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrderService(orders OrderRepository, products ProductRepository, users UserRepository, publisher events.Publisher, cacheProvider cache.Provider, logger *slog.Logger) *OrderService {
	if publisher == nil {
		publisher = noopPublisher{}
	}

	return &OrderService{
		orders:    orders,
		products:  products,
		users:     users,
		publisher: publisher,
		cache:     cacheProvider,
		logger:    logger,
		now:       defaultClock,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type PlaceOrderInput struct {
	ProductID       uuid.UUID
	Quantity        int
	PaymentOption   string
	BuyerName       string
	ContactNumber   string
	DeliveryAddress string
	Notes           string
	IdempotencyKey  string
}

// Place books an order for the caller. The boolean is false when the
// idempotency key matched an order placed earlier, which is returned as is.
func (s *OrderService) Place(ctx context.Context, actorEmail string, input PlaceOrderInput) (*models.Order, bool, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.place",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("Place"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)

	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		observability.CountOrderRejected(ctx, "place", refusalReason(err))
		return nil, false, err
	}

	idemKey := ""
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" && s.cache != nil {
		idemKey = cache.IdempotencyKey(actor.Email, key)
		existing, claimed, err := s.claimIdempotencyKey(ctx, idemKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			logger.Info("returning order for repeated idempotency key", "order_id", existing.ID)
			return existing, false, nil
		}
		if !claimed {
			idemKey = ""
		}
	}
	// The claim must be settled even when the caller has gone away.
	cacheCtx := context.WithoutCancel(ctx)
	release := func() {
		if idemKey == "" {
			return
		}
		if err := s.cache.Delete(cacheCtx, idemKey); err != nil {
			logger.Warn("failed to release idempotency key", "error", err)
		}
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		release()
		err = storeError(err, "product")
		observability.CountOrderRejected(ctx, "place", refusalReason(err))
		return nil, false, err
	}

	order, err := lifecycle.NewOrder(product, actor, lifecycle.OrderInput{
		Quantity:        input.Quantity,
		PaymentOption:   input.PaymentOption,
		BuyerName:       input.BuyerName,
		ContactNumber:   input.ContactNumber,
		DeliveryAddress: input.DeliveryAddress,
		Notes:           input.Notes,
	}, s.now())
	if err != nil {
		release()
		observability.CountOrderRejected(ctx, "place", refusalReason(err))
		return nil, false, err
	}
	order.CreatedAt = s.now()

	if err := s.orders.Create(ctx, order); err != nil {
		release()
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	if idemKey != "" {
		if err := s.cache.Set(cacheCtx, idemKey, order.ID.String(), cache.TTLIdempotency); err != nil {
			logger.Warn("failed to record idempotency key", "error", err, "order_id", order.ID)
			release()
		}
	}

	observability.CountOrderTransition(ctx, "place", "", string(order.Status))
	logger.Info("order placed", "order_id", order.ID, "product_id", product.ID, "quantity", order.Quantity)
	s.publish(ctx, events.OrderPlaced, order, "", actor.Email)
	return order, true, nil
}

// claimIdempotencyKey returns the order a previous request already created
// for key, or claims key for this request. Cache failures leave the request
// unprotected rather than failing it.
func (s *OrderService) claimIdempotencyKey(ctx context.Context, key string) (*models.Order, bool, error) {
	logger := s.loggerFromContext(ctx)

	claimed, err := s.cache.SetIfAbsent(ctx, key, idempotencyPending, cache.TTLIdempotency)
	if err != nil {
		logger.Warn("idempotency cache unavailable", "error", err)
		return nil, false, nil
	}
	if claimed {
		return nil, true, nil
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, false, ErrIdempotencyInFlight
		}
		logger.Warn("idempotency cache unavailable", "error", err)
		return nil, false, nil
	}
	if value == idempotencyPending {
		return nil, false, ErrIdempotencyInFlight
	}

	orderID, err := uuid.Parse(value)
	if err != nil {
		logger.Warn("discarding malformed idempotency record", "error", err)
		return nil, false, nil
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, storeError(err, "order")
	}
	return order, false, nil
}

// Get returns an order the caller may view.
func (s *OrderService) Get(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.Order, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, storeError(err, "order")
	}
	if !access.CanViewOrder(actor, order) {
		return nil, fmt.Errorf("%w: order belongs to another buyer", lifecycle.ErrForbidden)
	}
	return order, nil
}

type OrderQuery struct {
	BuyerEmail string
	Statuses   []models.OrderStatus
	Limit      int
}

// List scopes the result to the caller: buyers and suspended accounts see
// their own orders, staff see everything. Buyers do not see cancelled orders
// unless they filter for them explicitly.
func (s *OrderService) List(ctx context.Context, actorEmail string, query OrderQuery) ([]models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.list",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("List"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}

	filter := db.OrderFilter{
		BuyerEmail: models.NormalizeEmail(query.BuyerEmail),
		Statuses:   query.Statuses,
		Limit:      query.Limit,
	}
	if !isStaff(actor) {
		if filter.BuyerEmail != "" && filter.BuyerEmail != models.NormalizeEmail(actor.Email) {
			return nil, fmt.Errorf("%w: buyers may only list their own orders", lifecycle.ErrForbidden)
		}
		filter.BuyerEmail = models.NormalizeEmail(actor.Email)
		filter.ExcludeCancelled = len(query.Statuses) == 0
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func isStaff(u *models.User) bool {
	if u == nil || u.Suspended() {
		return false
	}
	return u.Role == models.RoleAdmin || u.Role == models.RoleManager
}

func (s *OrderService) Approve(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.Order, error) {
	return s.changeStatus(ctx, "approve", actorEmail, orderID, events.OrderApproved, func(order *models.Order, actor *models.User) error {
		return lifecycle.Approve(order, actor, s.now())
	})
}

func (s *OrderService) Reject(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.Order, error) {
	return s.changeStatus(ctx, "reject", actorEmail, orderID, events.OrderRejected, lifecycle.Reject)
}

func (s *OrderService) Cancel(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.Order, error) {
	return s.changeStatus(ctx, "cancel", actorEmail, orderID, events.OrderCancelled, lifecycle.Cancel)
}

// changeStatus applies a review transition and persists it with a
// compare-and-set on the status the decision was made against.
func (s *OrderService) changeStatus(ctx context.Context, operation, actorEmail string, orderID uuid.UUID, eventType events.Type, apply func(*models.Order, *models.User) error) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order."+operation,
		sentry.WithOpName("service.order"),
		sentry.WithDescription(operation),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, order, err := s.loadForChange(ctx, actorEmail, orderID)
	if err != nil {
		observability.CountOrderRejected(ctx, operation, refusalReason(err))
		return nil, err
	}

	previous := order.Status
	if err := apply(order, actor); err != nil {
		observability.CountOrderRejected(ctx, operation, refusalReason(err))
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, order, previous); err != nil {
		err = storeError(err, "order")
		observability.CountOrderRejected(ctx, operation, refusalReason(err))
		return nil, err
	}

	observability.CountOrderTransition(ctx, operation, string(previous), string(order.Status))
	s.loggerFromContext(ctx).Info("order status changed",
		"order_id", order.ID,
		"from", previous,
		"to", order.Status,
		"actor", actor.Email)
	s.publish(ctx, eventType, order, previous, actor.Email)
	return order, nil
}

func (s *OrderService) loadForChange(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.User, *models.Order, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, nil, err
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, storeError(err, "order")
	}
	return actor, order, nil
}

// AppendTracking records a production or shipment event. The event time is
// assigned here, not taken from the caller.
func (s *OrderService) AppendTracking(ctx context.Context, actorEmail string, orderID uuid.UUID, input lifecycle.TrackingInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.append_tracking",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("AppendTracking"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, order, err := s.loadForChange(ctx, actorEmail, orderID)
	if err != nil {
		observability.CountOrderRejected(ctx, "track", refusalReason(err))
		return nil, err
	}

	previous := order.Status
	event, err := lifecycle.AppendTracking(order, actor, input, s.now())
	if err != nil {
		observability.CountOrderRejected(ctx, "track", refusalReason(err))
		return nil, err
	}
	if err := s.orders.AppendTracking(ctx, order, previous, event); err != nil {
		err = storeError(err, "order")
		observability.CountOrderRejected(ctx, "track", refusalReason(err))
		return nil, err
	}

	observability.CountOrderTransition(ctx, "track", string(previous), string(order.Status))
	s.loggerFromContext(ctx).Info("tracking event appended",
		"order_id", order.ID,
		"status", event.Status,
		"location", event.Location,
		"actor", actor.Email)
	s.publish(ctx, events.OrderTrackingUpdated, order, previous, actor.Email)
	return order, nil
}

// MarkPaid sets the payment axis. Marking an already paid order is a no-op.
func (s *OrderService) MarkPaid(ctx context.Context, actorEmail string, orderID uuid.UUID) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.mark_paid",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("MarkPaid"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, order, err := s.loadForChange(ctx, actorEmail, orderID)
	if err != nil {
		observability.CountOrderRejected(ctx, "mark_paid", refusalReason(err))
		return nil, err
	}

	alreadyPaid := order.PaymentStatus == models.PaymentPaid
	if err := lifecycle.MarkPaid(order, actor); err != nil {
		observability.CountOrderRejected(ctx, "mark_paid", refusalReason(err))
		return nil, err
	}
	if alreadyPaid {
		return order, nil
	}
	if err := s.orders.MarkPaid(ctx, order.ID); err != nil {
		err = storeError(err, "order")
		observability.CountOrderRejected(ctx, "mark_paid", refusalReason(err))
		return nil, err
	}

	s.loggerFromContext(ctx).Info("order marked paid", "order_id", order.ID, "actor", actor.Email)
	s.publish(ctx, events.OrderPaid, order, order.Status, actor.Email)
	return order, nil
}

// Timeline is the newest-first tracking view of an order the caller may see.
func (s *OrderService) Timeline(ctx context.Context, actorEmail string, orderID uuid.UUID) (tracking.View, error) {
	order, err := s.Get(ctx, actorEmail, orderID)
	if err != nil {
		return tracking.View{}, err
	}
	return tracking.ViewOf(order), nil
}

// publish never fails the caller: the state change is already committed.
func (s *OrderService) publish(ctx context.Context, eventType events.Type, order *models.Order, previous models.OrderStatus, actor string) {
	logger := s.loggerFromContext(ctx)

	env, err := events.NewEnvelope(eventType, eventProducer, events.PayloadFor(order, previous, actor), s.now())
	if err != nil {
		logger.Error("failed to build order event", "error", err, "event_type", eventType, "order_id", order.ID)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		logger.Error("failed to publish order event", "error", err, "event_type", eventType, "order_id", order.ID)
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Envelope) error { return nil }

func (noopPublisher) Close() error { return nil }
