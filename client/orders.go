package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/tracking"
)

type OrderQuery struct {
	BuyerEmail string
	Statuses   []models.OrderStatus
	Limit      int
}

func (q OrderQuery) values() url.Values {
	values := url.Values{}
	if q.BuyerEmail != "" {
		values.Set("email", q.BuyerEmail)
	}
	if len(q.Statuses) > 0 {
		labels := make([]string, 0, len(q.Statuses))
		for _, status := range q.Statuses {
			labels = append(labels, string(status))
		}
		values.Set("status", strings.Join(labels, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

type PlaceOrderRequest struct {
	ProductID       uuid.UUID `json:"productId"`
	Quantity        int       `json:"quantity"`
	PaymentOption   string    `json:"paymentOption,omitempty"`
	BuyerName       string    `json:"buyerName,omitempty"`
	ContactNumber   string    `json:"contactNumber"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Notes           string    `json:"notes,omitempty"`
}

// TrackingUpdate is one production event. The server stamps its time.
type TrackingUpdate struct {
	Status      models.OrderStatus
	Location    string
	Note        string
	Image       string
	Coordinates *models.Coordinates
}

type trackingPayload struct {
	Tracking struct {
		Status   models.OrderStatus `json:"status"`
		Location string             `json:"location"`
		Note     string             `json:"note,omitempty"`
		Image    string             `json:"image,omitempty"`
		IsLatest bool               `json:"isLatest"`
	} `json:"tracking"`
	Coordinates *models.Coordinates `json:"coordinates,omitempty"`
}

func (c *Client) Orders(ctx context.Context, s *Session, q OrderQuery) ([]models.Order, error) {
	var orders []models.Order
	if _, err := c.do(ctx, s, call{method: http.MethodGet, path: "/orders", query: q.values()}, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrder books an order. With a non-empty idempotencyKey a retried call
// returns the original order and created is false.
func (c *Client) PlaceOrder(ctx context.Context, s *Session, req PlaceOrderRequest, idempotencyKey string) (*models.Order, bool, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var order models.Order
	status, err := c.do(ctx, s, call{method: http.MethodPost, path: "/orders", body: req, headers: headers}, &order)
	if err != nil {
		return nil, false, err
	}
	return &order, status == http.StatusCreated, nil
}

func (c *Client) Order(ctx context.Context, s *Session, id uuid.UUID) (*models.Order, error) {
	return c.orderCall(ctx, s, call{method: http.MethodGet, path: "/order/" + id.String()})
}

func (c *Client) CancelOrder(ctx context.Context, s *Session, id uuid.UUID) (*models.Order, error) {
	return c.orderCall(ctx, s, call{method: http.MethodDelete, path: "/order/" + id.String()})
}

func (c *Client) ApproveOrder(ctx context.Context, s *Session, id uuid.UUID) (*models.Order, error) {
	return c.patchOrder(ctx, s, id, map[string]string{"status": string(models.StatusApproved)})
}

func (c *Client) RejectOrder(ctx context.Context, s *Session, id uuid.UUID) (*models.Order, error) {
	return c.patchOrder(ctx, s, id, map[string]string{"status": string(models.StatusRejected)})
}

func (c *Client) MarkPaid(ctx context.Context, s *Session, id uuid.UUID) (*models.Order, error) {
	return c.patchOrder(ctx, s, id, map[string]string{"paymentStatus": string(models.PaymentPaid)})
}

func (c *Client) AppendTracking(ctx context.Context, s *Session, id uuid.UUID, update TrackingUpdate) (*models.Order, error) {
	var payload trackingPayload
	payload.Tracking.Status = update.Status
	payload.Tracking.Location = update.Location
	payload.Tracking.Note = update.Note
	payload.Tracking.Image = update.Image
	payload.Tracking.IsLatest = true
	payload.Coordinates = update.Coordinates
	return c.patchOrder(ctx, s, id, payload)
}

// Timeline returns the newest-first tracking history and map view.
func (c *Client) Timeline(ctx context.Context, s *Session, id uuid.UUID) (*tracking.View, error) {
	var view tracking.View
	if _, err := c.do(ctx, s, call{method: http.MethodGet, path: "/orders/" + id.String() + "/tracking"}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) patchOrder(ctx context.Context, s *Session, id uuid.UUID, body any) (*models.Order, error) {
	return c.orderCall(ctx, s, call{method: http.MethodPatch, path: "/orders/" + id.String(), body: body})
}

func (c *Client) orderCall(ctx context.Context, s *Session, req call) (*models.Order, error) {
	var order models.Order
	if _, err := c.do(ctx, s, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
