// Package cache stores short-lived values: idempotency keys, consumer
// de-duplication markers and rendered analytics dashboards.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("key not found")

const (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetIfAbsent stores value only when key is missing and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	MemorySize            int
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(cfg.MemorySize)
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// IdempotencyKey scopes a client-supplied Idempotency-Key to the buyer.
func IdempotencyKey(buyerEmail, key string) string {
	return fmt.Sprintf("idem:order:create:%s:%s", strings.ToLower(strings.TrimSpace(buyerEmail)), key)
}

// DedupKey marks an event as handled by consumer.
func DedupKey(consumer, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", consumer, eventID)
}

func AnalyticsKey(scope, window string) string {
	return fmt.Sprintf("analytics:%s:%s", strings.ToLower(scope), strings.ReplaceAll(strings.ToLower(window), " ", ""))
}
