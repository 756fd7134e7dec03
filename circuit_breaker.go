package modbus

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fieldline/modbus/mbap"
)

// CircuitBreaker guards pooled round-trips against a failing server.
// Implemented by *gobreaker.CircuitBreaker[*mbap.Response].
type CircuitBreaker interface {
	Execute(fn func() (*mbap.Response, error)) (*mbap.Response, error)
	State() gobreaker.State
}

// NewCircuitBreakerConfig returns a factory that creates a circuit breaker
// per server address, for use as PoolConfig.NewCircuitBreaker. The breaker
// trips once at least 3 requests have been observed in the interval and
// 60% of them failed.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) CircuitBreaker {
	return func(serverAddr string) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*mbap.Response](settings)
	}
}
