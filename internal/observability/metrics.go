package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
)

type meterContextKey struct{}

func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterContextKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the request meter, or a fresh one bound to ctx.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterContextKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}

// CountOrderTransition records one lifecycle move, labelled by its endpoints.
func CountOrderTransition(ctx context.Context, operation, from, to string) {
	MeterFromContext(ctx).Count("order.transition", 1, sentry.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// CountOrderRejected records a lifecycle request refused for reason.
func CountOrderRejected(ctx context.Context, operation, reason string) {
	MeterFromContext(ctx).Count("order.transition.refused", 1, sentry.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("reason", reason),
	))
}
