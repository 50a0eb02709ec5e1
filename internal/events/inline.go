package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InlinePublisher hands every event straight to the registered handlers in
// the publishing goroutine. It stands in for Kafka in single-process deployments.
type InlinePublisher struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

func NewInlinePublisher(logger *slog.Logger, handlers ...Handler) *InlinePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlinePublisher{handlers: handlers, logger: logger}
}

func (p *InlinePublisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Publish runs every handler even if an earlier one fails and joins the errors.
func (p *InlinePublisher) Publish(ctx context.Context, env Envelope) error {
	p.mu.RLock()
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.RUnlock()

	var errs error
	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			p.logger.Warn("event handler failed", "event_type", env.EventType, "event_id", env.EventID, "error", err)
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (p *InlinePublisher) Close() error {
	return nil
}
