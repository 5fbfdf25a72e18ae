package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const cloudflare524 = 524

var DefaultMaxRetryDelay = 10 * time.Second

// StatusError is a non successful HTTP reply.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

// ShouldRetry tells whether a failed request is worth sending again and the
// base delay before doing so.
func ShouldRetry(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusTooManyRequests, cloudflare524:
			return true, 5 * time.Second
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, time.Second
		default:
			return false, 0
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true, time.Second
	}
	return false, 0
}

// RetryPolicy retries a request up to MaxRetries times, doubling the delay
// suggested by ShouldRetry at every attempt, capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	MaxDelay   time.Duration
}

func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || attempt >= p.MaxRetries {
			return err
		}
		retry, delay := ShouldRetry(err)
		if !retry {
			return err
		}

		delay = min(delay<<attempt, maxDelay)
		logrus.WithError(err).Debugf("request failed, retrying in %s", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
