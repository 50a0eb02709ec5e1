// Package notify turns order lifecycle events into buyer emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/garmentrack/garmentrack/internal/cache"
	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/email"
	"github.com/garmentrack/garmentrack/internal/events"
	"github.com/garmentrack/garmentrack/internal/models"
)

const consumerName = "notifier"

type Notifier struct {
	provider email.Provider
	renderer *email.Renderer
	cache    cache.Provider
	baseURL  string
	location *time.Location
	logger   *slog.Logger
}

type Config struct {
	BaseURL  string
	Location *time.Location
}

func New(provider email.Provider, cacheProvider cache.Provider, cfg Config, logger *slog.Logger) (*Notifier, error) {
	if provider == nil {
		return nil, fmt.Errorf("email provider is required")
	}
	if cacheProvider == nil {
		return nil, fmt.Errorf("cache provider is required")
	}
	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		provider: provider,
		renderer: renderer,
		cache:    cacheProvider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		location: cfg.Location,
		logger:   logger,
	}, nil
}

// TemplateFor picks the buyer email for an event, or "" when the buyer is not notified.
func TemplateFor(eventType events.Type, status models.OrderStatus) string {
	switch eventType {
	case events.OrderPlaced:
		return email.TemplateOrderPlaced
	case events.OrderApproved:
		return email.TemplateOrderApproved
	case events.OrderRejected:
		return email.TemplateOrderRejected
	case events.OrderTrackingUpdated:
		if status == models.StatusDelivered {
			return email.TemplateOrderDelivered
		}
		return email.TemplateOrderProgress
	default:
		return ""
	}
}

// Handle sends at most one email per event ID. A failed send releases the
// marker so a redelivery can retry.
func (n *Notifier) Handle(ctx context.Context, env events.Envelope) error {
	payload, err := env.OrderPayload()
	if err != nil {
		return err
	}
	templateName := TemplateFor(env.EventType, payload.Status)
	if templateName == "" || payload.BuyerEmail == "" {
		return nil
	}

	key := cache.DedupKey(consumerName, env.EventID)
	fresh, err := n.cache.SetIfAbsent(ctx, key, string(env.EventType), cache.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !fresh {
		n.logger.DebugContext(ctx, "skipping duplicate event", "event_id", env.EventID)
		return nil
	}

	info := n.orderInfo(payload, env.OccurredAt)
	if err := n.renderer.Send(ctx, n.provider, templateName, info); err != nil {
		if delErr := n.cache.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return fmt.Errorf("send %s to %s: %w", templateName, payload.BuyerEmail, err)
	}

	n.logger.InfoContext(ctx, "buyer notified",
		"template", templateName,
		"order_id", payload.OrderID,
		"event_id", env.EventID,
	)
	return nil
}

func (n *Notifier) orderInfo(payload events.OrderPayload, occurredAt time.Time) *email.OrderInfo {
	info := &email.OrderInfo{
		OrderID:     payload.OrderID.String(),
		BuyerName:   payload.BuyerName,
		BuyerEmail:  payload.BuyerEmail,
		ProductName: payload.ProductName,
		Quantity:    payload.Quantity,
		Total:       catalog.FormatCents(payload.TotalCents),
		Status:      string(payload.Status),
		Location:    payload.Location,
		Note:        payload.Note,
		Date:        occurredAt.In(n.location).Format("January 2, 2006"),
	}
	if n.baseURL != "" {
		info.TrackingURL = fmt.Sprintf("%s/orders/%s/tracking", n.baseURL, payload.OrderID)
	}
	return info
}
