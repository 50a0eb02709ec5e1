// Package events carries order lifecycle notifications between the API and
// background consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/models"
)

type Type string

const (
	OrderPlaced          Type = "order.placed"
	OrderApproved        Type = "order.approved"
	OrderRejected        Type = "order.rejected"
	OrderCancelled       Type = "order.cancelled"
	OrderTrackingUpdated Type = "order.tracking_updated"
	OrderPaid            Type = "order.paid"
)

const currentVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     Type            `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderPayload is the order snapshot every lifecycle event carries.
type OrderPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	BuyerEmail     string             `json:"buyer_email"`
	BuyerName      string             `json:"buyer_name,omitempty"`
	ProductName    string             `json:"product_name"`
	Quantity       int                `json:"quantity"`
	TotalCents     int64              `json:"total_cents"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	Location       string             `json:"location,omitempty"`
	Note           string             `json:"note,omitempty"`
	Actor          string             `json:"actor,omitempty"`
}

func PayloadFor(order *models.Order, previous models.OrderStatus, actor string) OrderPayload {
	payload := OrderPayload{
		OrderID:        order.ID,
		BuyerEmail:     order.BuyerEmail,
		BuyerName:      order.BuyerName,
		ProductName:    order.ProductName,
		Quantity:       order.Quantity,
		TotalCents:     order.TotalCents,
		Status:         order.Status,
		PreviousStatus: previous,
		Location:       order.Location,
		Actor:          actor,
	}
	if n := len(order.TrackingHistory); n > 0 {
		payload.Note = order.TrackingHistory[n-1].Note
	}
	return payload
}

// NewEnvelope wraps payload. The order ID doubles as correlation and partition key.
func NewEnvelope(eventType Type, producer string, payload OrderPayload, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  currentVersion,
		OccurredAt:    now.UTC(),
		Producer:      producer,
		CorrelationID: payload.OrderID.String(),
		Payload:       raw,
	}, nil
}

func (e Envelope) OrderPayload() (OrderPayload, error) {
	var payload OrderPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return OrderPayload{}, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return payload, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Handler returns nil only when the event is fully processed.
type Handler func(ctx context.Context, env Envelope) error
