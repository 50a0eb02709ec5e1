package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/tracking"
)

var reviewable = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.StatusPending: {
		models.StatusApproved:  true,
		models.StatusRejected:  true,
		models.StatusCancelled: true,
	},
}

// CanTransition reports whether a direct status change from one status to another is legal.
// Moves into production stages happen only through AppendTracking.
func CanTransition(from, to models.OrderStatus) bool {
	if reviewable[from][to] {
		return true
	}
	return to.IsStage() && AcceptsTracking(from)
}

// AcceptsTracking reports whether tracking events may be appended in status.
func AcceptsTracking(status models.OrderStatus) bool {
	if status == models.StatusApproved {
		return true
	}
	return status.IsStage() && !status.IsTerminal()
}

// Approve moves a pending order to Approved and stamps approvedAt.
func Approve(order *models.Order, actor *models.User, now time.Time) error {
	if !access.ForUser(actor).CanApprove {
		return fmt.Errorf("%w: approving orders requires an active manager or admin", ErrForbidden)
	}
	if !CanTransition(order.Status, models.StatusApproved) {
		return fmt.Errorf("%w: order is %s, expected %s", ErrInvalidTransition, order.Status, models.StatusPending)
	}

	order.Status = models.StatusApproved
	if order.ApprovedAt.IsZero() {
		order.ApprovedAt = now
	}
	return nil
}

// Reject moves a pending order to Rejected.
func Reject(order *models.Order, actor *models.User) error {
	if !access.ForUser(actor).CanReject {
		return fmt.Errorf("%w: rejecting orders requires an active manager or admin", ErrForbidden)
	}
	if !CanTransition(order.Status, models.StatusRejected) {
		return fmt.Errorf("%w: order is %s, expected %s", ErrInvalidTransition, order.Status, models.StatusPending)
	}

	order.Status = models.StatusRejected
	return nil
}

// Cancel lets the buyer withdraw an order while it is still Pending.
func Cancel(order *models.Order, actor *models.User) error {
	if actor == nil || actor.Suspended() || !order.PlacedBy(actor.Email) {
		return fmt.Errorf("%w: only the buyer can cancel an order", ErrForbidden)
	}
	if !CanTransition(order.Status, models.StatusCancelled) {
		return fmt.Errorf("%w: order is %s, only %s orders can be cancelled", ErrInvalidTransition, order.Status, models.StatusPending)
	}

	order.Status = models.StatusCancelled
	return nil
}

type TrackingInput struct {
	Status      string
	Location    string
	Note        string
	Image       string
	Coordinates *models.Coordinates
}

// AppendTracking records a production event and moves the order to its status.
// Stages may be recorded in any order; only membership in the stage list is checked.
func AppendTracking(order *models.Order, actor *models.User, input TrackingInput, now time.Time) (models.TrackingEvent, error) {
	if !access.ForUser(actor).CanAppendTracking {
		return models.TrackingEvent{}, fmt.Errorf("%w: tracking updates require an active manager or admin", ErrForbidden)
	}
	if !AcceptsTracking(order.Status) {
		return models.TrackingEvent{}, fmt.Errorf("%w: order is %s and does not accept tracking updates", ErrInvalidTransition, order.Status)
	}

	status, err := models.ParseOrderStatus(input.Status)
	if err != nil || !status.IsStage() {
		return models.TrackingEvent{}, invalidField("status", "Unknown production stage: %s", strings.TrimSpace(input.Status))
	}
	location := strings.TrimSpace(input.Location)
	if location == "" {
		return models.TrackingEvent{}, invalidField("location", "Location is required")
	}

	event := models.TrackingEvent{
		Status:   status,
		Location: location,
		Note:     strings.TrimSpace(input.Note),
		Time:     now,
		Image:    strings.TrimSpace(input.Image),
	}

	log := tracking.NewLog(order.TrackingHistory)
	log.Append(event)

	order.TrackingHistory = log.Events()
	order.Status = log.CurrentStatus()
	order.Location = location
	order.Coordinates = nil
	if input.Coordinates != nil && input.Coordinates.Valid() {
		coords := *input.Coordinates
		order.Coordinates = &coords
	}

	return event, nil
}

// MarkPaid flips the payment axis. It is independent of the production status
// except that closed orders cannot be paid.
func MarkPaid(order *models.Order, actor *models.User) error {
	if !access.ForUser(actor).CanApprove {
		return fmt.Errorf("%w: recording payments requires an active manager or admin", ErrForbidden)
	}
	switch order.Status {
	case models.StatusRejected, models.StatusCancelled:
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	order.PaymentStatus = models.PaymentPaid
	return nil
}
