package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/models"
)

// ErrUnauthenticated means the caller has no usable identity. Handlers answer 401.
var ErrUnauthenticated = errors.New("authentication required")

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter db.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, order *models.Order, expected models.OrderStatus) error
	AppendTracking(ctx context.Context, order *models.Order, expected models.OrderStatus, event models.TrackingEvent) error
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Upsert(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter db.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAccess(ctx context.Context, user *models.User) error
}

// UserError carries a message that is safe to show to the caller.
type UserError struct {
	Message string
}

func (e UserError) Error() string {
	return e.Message
}

func defaultClock() time.Time {
	return time.Now().UTC()
}

// loadActor reads the caller's current role and status. Nothing is cached so
// a suspension applies to the very next request.
func loadActor(ctx context.Context, users UserRepository, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, ErrUnauthenticated
	}
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: no account for %s", ErrUnauthenticated, email)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	logging.Annotate(ctx, "actor_role", string(user.Role))
	return user, nil
}

// storeError translates store sentinels into the lifecycle taxonomy.
func storeError(err error, subject string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%w: %s", lifecycle.ErrNotFound, subject)
	case errors.Is(err, db.ErrInvalidStatusTransition):
		return fmt.Errorf("%w: %s changed concurrently", lifecycle.ErrInvalidTransition, subject)
	default:
		return fmt.Errorf("failed to access %s: %w", subject, err)
	}
}

func fieldError(err error) error {
	var fe *catalog.FieldError
	if errors.As(err, &fe) {
		return &lifecycle.ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return err
}

// refusalReason labels a refused operation for metrics.
func refusalReason(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrForbidden):
		return "forbidden"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, lifecycle.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case lifecycle.IsValidation(err):
		return "validation"
	default:
		return "error"
	}
}
