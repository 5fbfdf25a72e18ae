package utils

import (
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

var (
	MaxNumOfFailingRequests = 10
	FailingRatio            = 0.6
)

// NewCircuitBreaker opens once more than MaxNumOfFailingRequests requests
// were seen and at least FailingRatio of them failed.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// NewRateLimiter returns an unlimited limiter when rps is not positive.
func NewRateLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}
