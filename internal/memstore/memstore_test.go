package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/models"
)

func TestOrderCompareAndSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	order := &models.Order{BuyerEmail: "buyer@example.com", Status: models.StatusPending}
	if err := store.Orders.Create(ctx, order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID == uuid.Nil || order.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned: %+v", order)
	}

	approved := order.Clone()
	approved.Status = models.StatusApproved
	approved.ApprovedAt = time.Now()
	if err := store.Orders.UpdateStatus(ctx, approved, models.StatusPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rejected := order.Clone()
	rejected.Status = models.StatusRejected
	if err := store.Orders.UpdateStatus(ctx, rejected, models.StatusPending); !errors.Is(err, db.ErrInvalidStatusTransition) {
		t.Fatalf("expected stale write to fail, got %v", err)
	}

	if err := store.Orders.UpdateStatus(ctx, &models.Order{ID: uuid.New()}, models.StatusPending); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAppendTrackingKeepsHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	order := &models.Order{Status: models.StatusApproved}
	if err := store.Orders.Create(ctx, order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stages := []models.OrderStatus{models.StageCuttingStarted, models.StageCuttingCompleted}
	expected := models.StatusApproved
	for _, stage := range stages {
		next := order.Clone()
		next.Status = stage
		next.Location = "Factory"
		if err := store.Orders.AppendTracking(ctx, next, expected, models.TrackingEvent{Status: stage, Location: "Factory"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected = stage
	}

	stored, err := store.Orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored.TrackingHistory) != 2 || stored.TrackingHistory[0].Status != models.StageCuttingStarted {
		t.Fatalf("unexpected history: %+v", stored.TrackingHistory)
	}
	if stored.Status != models.StageCuttingCompleted {
		t.Fatalf("unexpected status: %q", stored.Status)
	}

	stored.TrackingHistory[0].Location = "mutated"
	again, _ := store.Orders.GetByID(ctx, order.ID)
	if again.TrackingHistory[0].Location != "Factory" {
		t.Fatalf("returned orders must not alias stored history")
	}
}

func TestOrderListFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mine := &models.Product{Name: "Polo", CreatedBy: "manager@example.com"}
	theirs := &models.Product{Name: "Denim", CreatedBy: "other@example.com"}
	for _, p := range []*models.Product{mine, theirs} {
		if err := store.Products.Create(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	orders := []*models.Order{
		{BuyerEmail: "a@example.com", ProductID: mine.ID, Status: models.StatusPending, CreatedAt: base},
		{BuyerEmail: "A@example.com", ProductID: theirs.ID, Status: models.StatusCancelled, CreatedAt: base.Add(time.Hour)},
		{BuyerEmail: "b@example.com", ProductID: mine.ID, Status: models.StatusApproved, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, o := range orders {
		if err := store.Orders.Create(ctx, o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	byBuyer, _ := store.Orders.List(ctx, db.OrderFilter{BuyerEmail: "a@example.com", ExcludeCancelled: true})
	if len(byBuyer) != 1 || byBuyer[0].ID != orders[0].ID {
		t.Fatalf("unexpected buyer list: %+v", byBuyer)
	}

	byOwner, _ := store.Orders.List(ctx, db.OrderFilter{ProductOwner: "MANAGER@example.com"})
	if len(byOwner) != 2 || byOwner[0].ID != orders[2].ID {
		t.Fatalf("expected newest first for owner list: %+v", byOwner)
	}

	limited, _ := store.Orders.List(ctx, db.OrderFilter{Limit: 1})
	if len(limited) != 1 {
		t.Fatalf("unexpected limit result: %d", len(limited))
	}
}

func TestUserUpsertKeepsAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	user := &models.User{Email: "m@example.com", Name: "M", Role: models.RoleBuyer, Status: models.AccountPending}
	if err := store.Users.Upsert(ctx, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user.Role = models.RoleManager
	user.Status = models.AccountActive
	if err := store.Users.UpdateAccess(ctx, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	relogin := &models.User{Email: "M@example.com", Name: "Renamed", Role: models.RoleBuyer, Status: models.AccountPending}
	if err := store.Users.Upsert(ctx, relogin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relogin.ID != user.ID || relogin.Role != models.RoleManager || relogin.Status != models.AccountActive {
		t.Fatalf("login must not reset access: %+v", relogin)
	}
	if relogin.Name != "Renamed" {
		t.Fatalf("unexpected name: %q", relogin.Name)
	}
}

func TestProductDuplicateName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if err := store.Products.Create(ctx, &models.Product{Name: "Polo", CreatedBy: "m@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Products.Create(ctx, &models.Product{Name: "Polo", CreatedBy: "M@example.com"}); !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := store.Products.Create(ctx, &models.Product{Name: "Polo", CreatedBy: "other@example.com"}); err != nil {
		t.Fatalf("other owners may reuse a name: %v", err)
	}
}
