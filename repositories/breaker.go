package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"mota-project/microservices/planning-service/logging"
)

// ErrUnavailable is returned while a breaker refuses calls.
var ErrUnavailable = errors.New("backing service unavailable")

// NewBreaker returns a breaker that opens after more than three consecutive failures.
func NewBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// Guard runs op through the breaker.
func Guard(cb *gobreaker.CircuitBreaker, op func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, cb.Name(), err)
	}
	return err
}
