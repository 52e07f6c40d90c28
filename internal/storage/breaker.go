package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vidtube/backend/internal/metrics"
)

// ErrUnavailable is returned while the object store circuit is open.
var ErrUnavailable = errors.New("object store unavailable")

// BreakerStore guards an ObjectStore with a circuit breaker so that a failing
// store is rejected fast instead of tying up request goroutines.
type BreakerStore struct {
	next ObjectStore
	cb   *gobreaker.CircuitBreaker[string]
	name string
}

// NewBreakerStore opens the circuit after `failures` consecutive errors and
// probes again after timeout.
func NewBreakerStore(next ObjectStore, failures int, timeout time.Duration) *BreakerStore {
	if failures <= 0 {
		failures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	const name = "object-store"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: storeHealthy,
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerStore{next: next, cb: cb, name: name}
}

// Save uploads through the breaker.
func (b *BreakerStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	return b.execute(func() (string, error) {
		return b.next.Save(ctx, key, r)
	})
}

// Delete removes through the breaker.
func (b *BreakerStore) Delete(ctx context.Context, location string) error {
	_, err := b.execute(func() (string, error) {
		return "", b.next.Delete(ctx, location)
	})
	return err
}

// State reports the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) execute(fn func() (string, error)) (string, error) {
	out, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return "", err
	}
}

// storeHealthy reports whether err leaves the store's health untouched. A
// reference outside the bucket or a cancelled request says nothing about
// the remote store.
func storeHealthy(err error) bool {
	return err == nil || errors.Is(err, ErrInvalidLocation) || errors.Is(err, context.Canceled)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
