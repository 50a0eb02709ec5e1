package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/observability"
)

type UserService struct {
	users  UserRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewUserService(users UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
		now:    defaultClock,
	}
}

func (s *UserService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type LoginInput struct {
	Email    string
	Name     string
	PhotoURL string
}

// Login records a verified sign-in. First-time users become pending buyers;
// returning users keep their role and status.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	span := sentry.StartSpan(
		ctx,
		"service.user.login",
		sentry.WithOpName("service.user"),
		sentry.WithDescription("Login"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)

	email := models.NormalizeEmail(input.Email)
	if !catalog.IsValidEmail(email) {
		meter.Count("user.login.failed", 1, sentry.WithAttributes(attribute.String("reason", "invalid_email")))
		return nil, &lifecycle.ValidationError{Field: "email", Message: "A valid email address is required"}
	}

	user := &models.User{
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		PhotoURL:  strings.TrimSpace(input.PhotoURL),
		Role:      models.RoleBuyer,
		Status:    models.AccountPending,
		CreatedAt: s.now(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		meter.Count("user.login.failed", 1, sentry.WithAttributes(attribute.String("reason", "store_failed")))
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	meter.Count("user.login.succeeded", 1, sentry.WithAttributes(attribute.String("role", string(user.Role))))
	s.loggerFromContext(ctx).Info("user logged in", "user_id", user.ID, "role", user.Role, "status", user.Status)
	return user, nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, actorEmail string) (*models.User, error) {
	return loadActor(ctx, s.users, actorEmail)
}

// Permissions is the caller's view projection, derived from current state.
func (s *UserService) Permissions(ctx context.Context, actorEmail string) (access.Permissions, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return access.Permissions{}, err
	}
	return access.ForUser(actor), nil
}

// GetByEmail lets users read their own account and admins read any.
func (s *UserService) GetByEmail(ctx context.Context, actorEmail, email string) (*models.User, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	email = models.NormalizeEmail(email)
	if email == "" || email == models.NormalizeEmail(actor.Email) {
		return actor, nil
	}
	if !access.ForUser(actor).CanManageUsers {
		return nil, fmt.Errorf("%w: only admins may look up other users", lifecycle.ErrForbidden)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actorEmail string) ([]models.User, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	if !access.ForUser(actor).CanManageUsers {
		return nil, fmt.Errorf("%w: only admins may list users", lifecycle.ErrForbidden)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

type ProfileInput struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoURL"`
}

// UpdateSelf edits the caller's profile. Role and status are not reachable here.
func (s *UserService) UpdateSelf(ctx context.Context, actorEmail string, input ProfileInput) (*models.User, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	if actor.Suspended() {
		return nil, fmt.Errorf("%w: suspended accounts cannot edit their profile", lifecycle.ErrForbidden)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, &lifecycle.ValidationError{Field: "name", Message: "Name cannot be empty"}
		}
		actor.Name = name
	}
	if input.PhotoURL != nil {
		actor.PhotoURL = strings.TrimSpace(*input.PhotoURL)
	}

	if err := s.users.UpdateProfile(ctx, actor); err != nil {
		return nil, storeError(err, "user")
	}
	return actor, nil
}

type AccessInput struct {
	Role            *string `json:"role"`
	Status          *string `json:"status"`
	SuspendReason   string  `json:"suspendReason"`
	SuspendFeedback string  `json:"suspendFeedback"`
}

// AdminUpdate changes another user's role or status. Suspending requires a
// reason; any other status clears the suspension fields.
func (s *UserService) AdminUpdate(ctx context.Context, actorEmail string, userID uuid.UUID, input AccessInput) (*models.User, error) {
	span := sentry.StartSpan(
		ctx,
		"service.user.admin_update",
		sentry.WithOpName("service.user"),
		sentry.WithDescription("AdminUpdate"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	if !access.ForUser(actor).CanManageUsers {
		return nil, fmt.Errorf("%w: only admins may change roles or status", lifecycle.ErrForbidden)
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if target.ID == actor.ID {
		return nil, fmt.Errorf("%w: admins cannot change their own role or status", lifecycle.ErrForbidden)
	}

	if input.Role != nil {
		role, err := models.ParseRole(*input.Role)
		if err != nil {
			return nil, &lifecycle.ValidationError{Field: "role", Message: fmt.Sprintf("Unknown role: %s", *input.Role)}
		}
		target.Role = role
	}
	if input.Status != nil {
		status, err := models.ParseAccountStatus(*input.Status)
		if err != nil {
			return nil, &lifecycle.ValidationError{Field: "status", Message: fmt.Sprintf("Unknown status: %s", *input.Status)}
		}
		target.Status = status
	}

	if target.Status == models.AccountSuspended {
		reason := strings.TrimSpace(input.SuspendReason)
		if reason == "" {
			reason = target.SuspendReason
		}
		if reason == "" {
			return nil, &lifecycle.ValidationError{Field: "suspendReason", Message: "A suspend reason is required"}
		}
		target.SuspendReason = reason
		if feedback := strings.TrimSpace(input.SuspendFeedback); feedback != "" {
			target.SuspendFeedback = feedback
		}
	} else {
		target.SuspendReason = ""
		target.SuspendFeedback = ""
	}

	if err := s.users.UpdateAccess(ctx, target); err != nil {
		return nil, storeError(err, "user")
	}

	s.loggerFromContext(ctx).Info("user access updated",
		"user_id", target.ID,
		"role", target.Role,
		"status", target.Status,
		"actor", actor.Email)
	return target, nil
}
