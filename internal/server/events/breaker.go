package events

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// newPublishBreaker opens after five consecutive publish failures and lets a
// trial publish through after timeout.
func newPublishBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
}
