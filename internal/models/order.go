package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID              uuid.UUID       `json:"id"`
	BuyerEmail      string          `json:"buyerEmail"`
	BuyerName       string          `json:"buyerName,omitempty"`
	ContactNumber   string          `json:"contactNumber,omitempty"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ProductID       uuid.UUID       `json:"productId"`
	ProductName     string          `json:"productName"`
	UnitPriceCents  int64           `json:"unitPriceCents"`
	Quantity        int             `json:"quantity"`
	TotalCents      int64           `json:"totalCents"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentOption   string          `json:"paymentOption,omitempty"`
	Location        string          `json:"location,omitempty"`
	Coordinates     *Coordinates    `json:"coordinates,omitempty"`
	TrackingHistory []TrackingEvent `json:"trackingHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	ApprovedAt      time.Time       `json:"approvedAt,omitzero"`
}

// TrackingEvent is one production or shipment progress record.
type TrackingEvent struct {
	Status   OrderStatus `json:"status"`
	Location string      `json:"location"`
	Note     string      `json:"note,omitempty"`
	Time     time.Time   `json:"time"`
	Image    string      `json:"image,omitempty"`
}

// PlacedBy reports whether email identifies the buyer of the order.
func (o *Order) PlacedBy(email string) bool {
	if o == nil {
		return false
	}
	email = strings.TrimSpace(email)
	return email != "" && strings.EqualFold(o.BuyerEmail, email)
}

// Clone returns a deep copy so callers can mutate without sharing history.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cloned := *o
	if o.Coordinates != nil {
		coords := *o.Coordinates
		cloned.Coordinates = &coords
	}
	if o.TrackingHistory != nil {
		cloned.TrackingHistory = append([]TrackingEvent(nil), o.TrackingHistory...)
	}
	return &cloned
}
