package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/events"
	"github.com/garmentrack/garmentrack/internal/memstore"
	"github.com/garmentrack/garmentrack/internal/models"
)

const (
	buyerEmail     = "buyer@example.com"
	otherBuyer     = "other@example.com"
	managerEmail   = "manager@example.com"
	suspendedEmail = "suspended@example.com"
	adminEmail     = "admin@example.com"
)

var fixedNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, 0, len(p.events))
	for _, env := range p.events {
		types = append(types, env.EventType)
	}
	return types
}

type fixture struct {
	store     *memstore.Store
	cache     *cache.MemoryProvider
	publisher *recordingPublisher
	orders    *OrderService
	products  *ProductService
	users     *UserService
	analytics *AnalyticsService
	product   *models.Product
	accounts  map[string]*models.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	store.SetClock(func() time.Time { return fixedNow })

	memCache, err := cache.NewMemoryProvider(64)
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		cache:     memCache,
		publisher: &recordingPublisher{},
		accounts:  make(map[string]*models.User),
	}

	for _, u := range []*models.User{
		{Email: buyerEmail, Name: "Rafi", Role: models.RoleBuyer, Status: models.AccountActive},
		{Email: otherBuyer, Name: "Nadia", Role: models.RoleBuyer, Status: models.AccountActive},
		{Email: managerEmail, Name: "Mitu", Role: models.RoleManager, Status: models.AccountActive},
		{Email: suspendedEmail, Name: "Sohel", Role: models.RoleManager, Status: models.AccountSuspended, SuspendReason: "policy"},
		{Email: adminEmail, Name: "Ayesha", Role: models.RoleAdmin, Status: models.AccountActive},
	} {
		require.NoError(t, store.Users.Upsert(ctx, u))
		f.accounts[u.Email] = u
	}

	f.product = &models.Product{
		Name:           "Pique Polo Shirt",
		Category:       "Shirt",
		PriceCents:     1000,
		Quantity:       20,
		MinimumOrder:   5,
		PaymentOptions: []string{"Cash on Delivery", "PayFirst"},
		CreatedBy:      managerEmail,
	}
	require.NoError(t, store.Products.Create(ctx, f.product))

	logger := discardLogger()
	f.orders = NewOrderService(store.Orders, store.Products, store.Users, f.publisher, memCache, logger)
	f.orders.now = func() time.Time { return fixedNow }
	f.products = NewProductService(store.Products, store.Users, logger)
	f.products.now = func() time.Time { return fixedNow }
	f.users = NewUserService(store.Users, logger)
	f.users.now = func() time.Time { return fixedNow }
	f.analytics = NewAnalyticsService(store.Orders, store.Products, store.Users, memCache, AnalyticsConfig{CacheTTL: time.Minute}, logger)
	f.analytics.now = func() time.Time { return fixedNow.Add(time.Hour) }

	return f
}

func (f *fixture) place(t *testing.T, email string, quantity int) *models.Order {
	t.Helper()

	order, created, err := f.orders.Place(context.Background(), email, PlaceOrderInput{
		ProductID:     f.product.ID,
		Quantity:      quantity,
		PaymentOption: "Cash on Delivery",
	})
	require.NoError(t, err)
	require.True(t, created)
	return order
}
