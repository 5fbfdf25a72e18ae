package qrlapi

import (
	"net/http"
	"time"
)

// Option is a functional option for configuring the QRL API client.
type Option func(*apiSvc)

// WithTimeout sets the per-request timeout of the default HTTP client.
// Default: 10 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(svc *apiSvc) {
		svc.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client. The timeout option is ignored
// when a client is given.
func WithHTTPClient(client *http.Client) Option {
	return func(svc *apiSvc) {
		svc.httpClient = client
	}
}

// WithCircuitBreaker wraps every request in a circuit breaker that opens
// after repeated transport or server failures.
// Default: disabled.
func WithCircuitBreaker(enabled bool) Option {
	return func(svc *apiSvc) {
		svc.withBreaker = enabled
	}
}

// WithRateLimit caps outgoing requests per second. Zero means unlimited.
// Default: unlimited.
func WithRateLimit(rps int) Option {
	return func(svc *apiSvc) {
		svc.rps = rps
	}
}

// WithRetries retries reads up to n times on transient failures.
// Default: no retries.
func WithRetries(n int) Option {
	return func(svc *apiSvc) {
		svc.retry.MaxRetries = n
	}
}
