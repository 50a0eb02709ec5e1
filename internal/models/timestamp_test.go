package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	valid := []string{"2026-03-01T10:00:00Z", "2026-03-01T10:00:00.123+06:00", "2026-03-01T10:00:00", "2026-03-01 10:00:00", "2026-03-01"}
	for _, raw := range valid {
		if ParseTimestamp(raw).IsZero() {
			t.Fatalf("expected %q to parse", raw)
		}
	}
	for _, raw := range []string{"", "yesterday", "03/01/2026"} {
		if !ParseTimestamp(raw).IsZero() {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestOrderUnmarshalToleratesBadTimestamps(t *testing.T) {
	t.Parallel()

	payload := `{
		"id": "4f8e2c1a-0000-4000-8000-000000000000",
		"buyerEmail": "buyer@example.com",
		"quantity": 10,
		"totalCents": 100,
		"status": "Shipped",
		"createdAt": "not a date",
		"approvedAt": "2026-03-01",
		"trackingHistory": [
			{"status": "Shipped", "location": "Dhaka Hub", "time": 1740823200},
			{"status": "Delivered", "location": "Uttara", "time": "2026-03-03T09:30:00+06:00"}
		]
	}`

	var order Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.CreatedAt.IsZero() {
		t.Fatalf("unexpected createdAt: got=%v want=zero", order.CreatedAt)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !order.ApprovedAt.Equal(want) {
		t.Fatalf("unexpected approvedAt: got=%v want=%v", order.ApprovedAt, want)
	}
	if order.Quantity != 10 || order.Status != StatusShipped || order.BuyerEmail != "buyer@example.com" {
		t.Fatalf("unexpected order fields: %+v", order)
	}
	if len(order.TrackingHistory) != 2 {
		t.Fatalf("unexpected history length: got=%d want=2", len(order.TrackingHistory))
	}
	if !order.TrackingHistory[0].Time.IsZero() {
		t.Fatalf("unexpected event time: got=%v want=zero", order.TrackingHistory[0].Time)
	}
	if order.TrackingHistory[1].Time.IsZero() || order.TrackingHistory[1].Location != "Uttara" {
		t.Fatalf("unexpected event: %+v", order.TrackingHistory[1])
	}
}

func TestTimestampsRoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	payload, err := json.Marshal(User{Email: "buyer@example.com", Role: RoleBuyer, CreatedAt: created})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var user User
	if err := json.Unmarshal(payload, &user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.CreatedAt.Equal(created) || user.Role != RoleBuyer {
		t.Fatalf("unexpected user: %+v", user)
	}

	var product Product
	if err := json.Unmarshal([]byte(`{"name":"Denim Jacket","createdAt":null}`), &product); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Name != "Denim Jacket" || !product.CreatedAt.IsZero() {
		t.Fatalf("unexpected product: %+v", product)
	}
}
