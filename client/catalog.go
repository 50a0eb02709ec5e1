package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/models"
)

type ProductQuery struct {
	Category  string
	CreatedBy string
	Featured  bool
	Limit     int
}

func (q ProductQuery) values() url.Values {
	values := url.Values{}
	if q.Featured {
		values.Set("home", "true")
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.CreatedBy != "" {
		values.Set("createdBy", q.CreatedBy)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

// ProductPatch changes only the non-nil fields.
type ProductPatch struct {
	Name           *string   `json:"name,omitempty"`
	Category       *string   `json:"category,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Image          *string   `json:"image,omitempty"`
	DemoVideo      *string   `json:"demoVideo,omitempty"`
	PriceCents     *int64    `json:"priceCents,omitempty"`
	Quantity       *int      `json:"quantity,omitempty"`
	MinimumOrder   *int      `json:"minimumOrder,omitempty"`
	Features       *[]string `json:"features,omitempty"`
	PaymentOptions *[]string `json:"paymentOptions,omitempty"`
	ShowOnHome     *bool     `json:"showOnHome,omitempty"`
}

type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

type AccessUpdate struct {
	Role            *models.Role          `json:"role,omitempty"`
	Status          *models.AccountStatus `json:"status,omitempty"`
	SuspendReason   string                `json:"suspendReason,omitempty"`
	SuspendFeedback string                `json:"suspendFeedback,omitempty"`
}

func (c *Client) Products(ctx context.Context, s *Session, q ProductQuery) ([]models.Product, error) {
	var products []models.Product
	if _, err := c.do(ctx, s, call{method: http.MethodGet, path: "/products", query: q.values()}, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Product(ctx context.Context, s *Session, id uuid.UUID) (*models.Product, error) {
	return c.productCall(ctx, s, call{method: http.MethodGet, path: "/product/" + id.String()})
}

func (c *Client) CreateProduct(ctx context.Context, s *Session, product *models.Product) (*models.Product, error) {
	return c.productCall(ctx, s, call{method: http.MethodPost, path: "/products", body: product})
}

func (c *Client) UpdateProduct(ctx context.Context, s *Session, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	return c.productCall(ctx, s, call{method: http.MethodPatch, path: "/product/" + id.String(), body: patch})
}

func (c *Client) DeleteProduct(ctx context.Context, s *Session, id uuid.UUID) error {
	_, err := c.do(ctx, s, call{method: http.MethodDelete, path: "/product/" + id.String()}, nil)
	return err
}

func (c *Client) productCall(ctx context.Context, s *Session, req call) (*models.Product, error) {
	var product models.Product
	if _, err := c.do(ctx, s, req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Permissions(ctx context.Context, s *Session) (access.Permissions, error) {
	var perms access.Permissions
	_, err := c.do(ctx, s, call{method: http.MethodGet, path: "/me/permissions"}, &perms)
	return perms, err
}

func (c *Client) Users(ctx context.Context, s *Session) ([]models.User, error) {
	var users []models.User
	if _, err := c.do(ctx, s, call{method: http.MethodGet, path: "/users"}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) User(ctx context.Context, s *Session, email string) (*models.User, error) {
	return c.userCall(ctx, s, call{method: http.MethodGet, path: "/user", query: url.Values{"email": {email}}})
}

func (c *Client) UpdateProfile(ctx context.Context, s *Session, update ProfileUpdate) (*models.User, error) {
	return c.userCall(ctx, s, call{method: http.MethodPatch, path: "/user", body: update})
}

// UpdateAccess changes another user's role or status. Admin only.
func (c *Client) UpdateAccess(ctx context.Context, s *Session, userID uuid.UUID, update AccessUpdate) (*models.User, error) {
	return c.userCall(ctx, s, call{method: http.MethodPatch, path: "/user/update/" + userID.String(), body: update})
}

func (c *Client) userCall(ctx context.Context, s *Session, req call) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, s, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
