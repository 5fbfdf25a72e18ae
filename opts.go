package qrlbridge

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/qrlwallet/go-bridge/internal/metrics"
)

type Option func(*qrlBridge) error

// WithScanLimit sets how many indexes of an iterable derivation mode are
// scanned. Non-iterable modes only ever scan index 0.
// Default: 1.
func WithScanLimit(limit int) Option {
	return func(b *qrlBridge) error {
		if limit <= 0 {
			return fmt.Errorf("scan limit must be positive, got %d", limit)
		}
		b.scanLimit = limit
		return nil
	}
}

// WithRecipientCache shares a host owned recipient cache with the bridge.
// Default: a private cache.
func WithRecipientCache(cache *RecipientCache) Option {
	return func(b *qrlBridge) error {
		if cache == nil {
			return fmt.Errorf("missing recipient cache")
		}
		b.recipients = cache
		return nil
	}
}

// WithMetrics registers the bridge counters under namespace.
func WithMetrics(namespace string, registerer prometheus.Registerer) Option {
	return func(b *qrlBridge) error {
		m, err := metrics.New(namespace, registerer)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		b.metrics = m
		return nil
	}
}

// WithClock overrides the time source used for sync and broadcast dates.
func WithClock(now func() time.Time) Option {
	return func(b *qrlBridge) error {
		b.now = now
		return nil
	}
}
