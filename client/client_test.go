package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garmentrack/garmentrack/internal/analytics"
	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/config"
	"github.com/garmentrack/garmentrack/internal/handlers"
	"github.com/garmentrack/garmentrack/internal/identity"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/memstore"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/services"
	"github.com/garmentrack/garmentrack/internal/session"
	"github.com/garmentrack/garmentrack/server"
)

const (
	signingSecret = "client-test-secret-0123456789abcdef"
	issuer        = "garmentrack-client-test"

	buyerEmail   = "buyer@example.com"
	managerEmail = "manager@example.com"
	adminEmail   = "admin@example.com"
)

type testServer struct {
	url     string
	store   *memstore.Store
	product *models.Product
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()
	for _, u := range []*models.User{
		{Email: buyerEmail, Name: "Rafi", Role: models.RoleBuyer, Status: models.AccountActive},
		{Email: managerEmail, Name: "Mitu", Role: models.RoleManager, Status: models.AccountActive},
		{Email: adminEmail, Name: "Ayesha", Role: models.RoleAdmin, Status: models.AccountActive},
	} {
		require.NoError(t, store.Users.Upsert(ctx, u))
	}
	product := &models.Product{
		Name:         "Cotton Chino",
		Category:     "Pants",
		PriceCents:   1800,
		Quantity:     100,
		MinimumOrder: 5,
		CreatedBy:    managerEmail,
	}
	require.NoError(t, store.Products.Create(ctx, product))

	memCache, err := cache.NewMemoryProvider(64)
	require.NoError(t, err)
	verifier, err := identity.NewVerifier(signingSecret, issuer)
	require.NoError(t, err)

	logger := discardLogger()
	h, err := handlers.New(handlers.Dependencies{
		Config:           &config.Config{BaseURL: "http://127.0.0.1"},
		SessionManager:   session.NewManager(session.NewMemoryStore(), false),
		Verifier:         verifier,
		OrderService:     services.NewOrderService(store.Orders, store.Products, store.Users, nil, memCache, logger),
		ProductService:   services.NewProductService(store.Products, store.Users, logger),
		UserService:      services.NewUserService(store.Users, logger),
		AnalyticsService: services.NewAnalyticsService(store.Orders, store.Products, store.Users, memCache, services.AnalyticsConfig{}, logger),
		Logger:           logger,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(server.NewRouter(h))
	t.Cleanup(srv.Close)

	return &testServer{url: srv.URL, store: store, product: product}
}

func (ts *testServer) login(t *testing.T, c *Client, email string) *Session {
	t.Helper()

	s, err := NewSession(ts.url, WithTimeout(5*time.Second))
	require.NoError(t, err)
	token, err := identity.Sign(signingSecret, issuer, identity.Claims{Email: email}, time.Minute)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), s, token)
	require.NoError(t, err)
	return s
}

func (ts *testServer) orderRequest(quantity int) PlaceOrderRequest {
	return PlaceOrderRequest{
		ProductID:       ts.product.ID,
		Quantity:        quantity,
		ContactNumber:   "01800000000",
		DeliveryAddress: "Uttara, Dhaka",
	}
}

func TestClient_OrderLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)
	c := New(nil, discardLogger())

	buyer := ts.login(t, c, buyerEmail)
	manager := ts.login(t, c, managerEmail)
	assert.Equal(t, buyerEmail, buyer.Email())
	assert.True(t, manager.Account().Permissions.CanApprove)

	order, created, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(6), "retry-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(10800), order.TotalCents)

	replay, created, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(6), "retry-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, replay.ID)

	approved, err := c.ApproveOrder(ctx, manager, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	tracked, err := c.AppendTracking(ctx, manager, order.ID, TrackingUpdate{
		Status:      models.StageSewingInProgress,
		Location:    "Ashulia",
		Note:        "line 4",
		Coordinates: &models.Coordinates{Lat: 23.89, Lng: 90.32},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageSewingInProgress, tracked.Status)

	paid, err := c.MarkPaid(ctx, manager, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)

	view, err := c.Timeline(ctx, buyer, order.ID)
	require.NoError(t, err)
	require.Len(t, view.Timeline, 1)
	assert.True(t, view.Timeline[0].Latest)
	assert.True(t, view.Map.Available)
	assert.Equal(t, "Ashulia", view.Map.Location)

	orders, err := c.Orders(ctx, buyer, OrderQuery{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)

	var fired atomic.Int32
	c := New(NewCoordinator(func(context.Context, *Session) { fired.Add(1) }), discardLogger())
	buyer := ts.login(t, c, buyerEmail)
	manager := ts.login(t, c, managerEmail)

	_, _, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(1), "")
	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
	assert.Equal(t, "Minimum order is 5", verr.Message)

	_, err = c.Order(ctx, buyer, uuid.New())
	require.ErrorIs(t, err, lifecycle.ErrNotFound)

	order, _, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(5), "")
	require.NoError(t, err)
	_, err = c.ApproveOrder(ctx, manager, order.ID)
	require.NoError(t, err)
	_, err = c.RejectOrder(ctx, manager, order.ID)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	assert.False(t, buyer.Closed())
	assert.False(t, manager.Closed())
	assert.Zero(t, fired.Load())

	_, err = c.ApproveOrder(ctx, buyer, order.ID)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.True(t, buyer.Closed())
	assert.Nil(t, buyer.Account())
	assert.EqualValues(t, 1, fired.Load())

	_, err = c.Orders(ctx, buyer, OrderQuery{})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestCoordinator_ConcurrentUnauthorizedFiresOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)

	var fired atomic.Int32
	coordinator := NewCoordinator(func(context.Context, *Session) { fired.Add(1) })
	c := New(coordinator, discardLogger())

	anonymous, err := NewSession(ts.url)
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Orders(ctx, anonymous, OrderQuery{})
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, fired.Load())
	assert.True(t, anonymous.LoggingOut())
	assert.True(t, anonymous.Closed())
	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrSessionClosed), "unexpected error: %v", err)
	}

	fresh := ts.login(t, c, buyerEmail)
	assert.False(t, fresh.LoggingOut())
}

func TestCoordinator_TearsDownEverySession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)

	var mu sync.Mutex
	var loggedOut []*Session
	c := New(NewCoordinator(func(_ context.Context, s *Session) {
		mu.Lock()
		defer mu.Unlock()
		loggedOut = append(loggedOut, s)
	}), discardLogger())

	buyer := ts.login(t, c, buyerEmail)
	manager := ts.login(t, c, managerEmail)
	admin := ts.login(t, c, adminEmail)

	order, _, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(5), "")
	require.NoError(t, err)

	_, err = c.ApproveOrder(ctx, buyer, order.ID)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.True(t, buyer.Closed())

	suspended := models.AccountSuspended
	_, err = c.UpdateAccess(ctx, admin, manager.Account().User.ID, AccessUpdate{Status: &suspended, SuspendReason: "late deliveries"})
	require.NoError(t, err)

	_, err = c.ApproveOrder(ctx, manager, order.ID)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.True(t, manager.Closed())
	assert.True(t, manager.LoggingOut())
	assert.False(t, admin.Closed())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, loggedOut, 2)
	assert.Same(t, buyer, loggedOut[0])
	assert.Same(t, manager, loggedOut[1])
}

func TestClient_DashboardMatchesServer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)
	c := New(nil, discardLogger())

	buyer := ts.login(t, c, buyerEmail)
	manager := ts.login(t, c, managerEmail)
	admin := ts.login(t, c, adminEmail)

	first, _, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(5), "")
	require.NoError(t, err)
	_, _, err = c.PlaceOrder(ctx, buyer, ts.orderRequest(7), "")
	require.NoError(t, err)
	cancelled, _, err := c.PlaceOrder(ctx, buyer, ts.orderRequest(9), "")
	require.NoError(t, err)
	_, err = c.ApproveOrder(ctx, manager, first.ID)
	require.NoError(t, err)
	_, err = c.CancelOrder(ctx, buyer, cancelled.ID)
	require.NoError(t, err)

	for name, s := range map[string]*Session{"buyer": buyer, "manager": manager, "admin": admin} {
		local, err := c.Dashboard(ctx, s, analytics.Window7Days, time.UTC)
		require.NoError(t, err, name)
		remote, err := c.Analytics(ctx, s, analytics.Window7Days)
		require.NoError(t, err, name)

		assert.Equal(t, remote.Role, local.Role, name)
		assert.Equal(t, remote.Totals, local.Totals, name)
		assert.Equal(t, remote.StatusBreakdown, local.StatusBreakdown, name)
		assert.Equal(t, remote.OrdersByDay, local.OrdersByDay, name)
		assert.EqualValues(t, 3, local.Totals.Orders, name)
	}
}

func TestSession_ClosedRefusesCalls(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	c := New(nil, nil)
	s := ts.login(t, c, buyerEmail)

	s.Close()
	s.Close()

	_, err := c.Products(context.Background(), s, ProductQuery{})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestNewSession_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewSession("/api")
	require.Error(t, err)

	s, err := NewSession("https://orders.example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://orders.example.com/api/orders?status=Pending", s.endpoint("/orders", OrderQuery{Statuses: []models.OrderStatus{models.StatusPending}}.values()))
}

func TestNetworkError_WrapsTransportFailure(t *testing.T) {
	t.Parallel()

	s, err := NewSession("http://127.0.0.1:1", WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = New(nil, nil).Products(context.Background(), s, ProductQuery{})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "GET /products", netErr.Op)
	assert.Zero(t, netErr.StatusCode)
}

func TestClient_DashboardRefusesSuspendedAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ts := newTestServer(t)
	c := New(nil, discardLogger())

	buyer := ts.login(t, c, buyerEmail)
	admin := ts.login(t, c, adminEmail)

	suspended := models.AccountSuspended
	_, err := c.UpdateAccess(ctx, admin, buyer.Account().User.ID, AccessUpdate{Status: &suspended, SuspendReason: "chargebacks"})
	require.NoError(t, err)

	account, err := c.Me(ctx, buyer)
	require.NoError(t, err)
	require.True(t, account.Permissions.None())

	_, err = c.Dashboard(ctx, buyer, analytics.Window7Days, time.UTC)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
	assert.False(t, buyer.Closed())
}
