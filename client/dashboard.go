package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/garmentrack/garmentrack/internal/analytics"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/models"
)

// Dashboard fetches the collections the session may see concurrently and
// aggregates them locally, in loc (UTC when nil). The first failed fetch
// cancels the others.
func (c *Client) Dashboard(ctx context.Context, s *Session, window analytics.Window, loc *time.Location) (analytics.Dashboard, error) {
	account := s.Account()
	if account == nil || account.User == nil {
		var err error
		if account, err = c.Me(ctx, s); err != nil {
			return analytics.Dashboard{}, err
		}
	}
	if loc == nil {
		loc = time.UTC
	}

	perms := account.Permissions
	if perms.None() {
		return analytics.Dashboard{}, fmt.Errorf("dashboard: %w: account is suspended or has no role", lifecycle.ErrForbidden)
	}
	email := models.NormalizeEmail(account.User.Email)
	in := analytics.Input{Window: window, Now: time.Now(), Location: loc}

	var role models.Role
	g, gctx := errgroup.WithContext(ctx)
	switch {
	case perms.CanManageUsers:
		role = models.RoleAdmin
		g.Go(func() (err error) {
			in.Orders, err = c.Orders(gctx, s, OrderQuery{})
			return err
		})
		g.Go(func() (err error) {
			in.Products, err = c.Products(gctx, s, ProductQuery{})
			return err
		})
		g.Go(func() (err error) {
			in.Users, err = c.Users(gctx, s)
			return err
		})
	case perms.CanManageProducts:
		role = models.RoleManager
		var orders []models.Order
		g.Go(func() (err error) {
			orders, err = c.Orders(gctx, s, OrderQuery{})
			return err
		})
		g.Go(func() (err error) {
			in.Products, err = c.Products(gctx, s, ProductQuery{CreatedBy: email})
			return err
		})
		if err := g.Wait(); err != nil {
			return analytics.Dashboard{}, err
		}
		in.Orders = ordersForProducts(orders, in.Products)
	case perms.CanPlaceOrder:
		role = models.RoleBuyer
		g.Go(func() (err error) {
			in.Orders, err = c.Orders(gctx, s, OrderQuery{BuyerEmail: email, Statuses: models.Statuses()})
			return err
		})
	default:
		return analytics.Dashboard{}, fmt.Errorf("dashboard: %w: account has no dashboard access", lifecycle.ErrForbidden)
	}

	if err := g.Wait(); err != nil {
		return analytics.Dashboard{}, err
	}
	if s.Closed() {
		return analytics.Dashboard{}, fmt.Errorf("dashboard: %w", ErrSessionClosed)
	}
	return analytics.ForRole(role, in), nil
}

func ordersForProducts(orders []models.Order, products []models.Product) []models.Order {
	owned := make(map[uuid.UUID]struct{}, len(products))
	for _, p := range products {
		owned[p.ID] = struct{}{}
	}
	scoped := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := owned[o.ProductID]; ok {
			scoped = append(scoped, o)
		}
	}
	return scoped
}

// Analytics returns the dashboard the server computes for the session's role.
func (c *Client) Analytics(ctx context.Context, s *Session, window analytics.Window) (analytics.Dashboard, error) {
	var dashboard analytics.Dashboard
	_, err := c.do(ctx, s, call{method: http.MethodGet, path: "/analytics", query: url.Values{"window": {string(window)}}}, &dashboard)
	return dashboard, err
}
