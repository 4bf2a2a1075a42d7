package resilience

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrPoolSaturated wraps every Acquire failure. The dependency behind the
// pool was never called, so breakers must not count it.
var ErrPoolSaturated = errors.New("worker pool saturated")

// Limiter is a bounded worker pool: at most Capacity calls in flight and at
// most RPS call starts per second. A nil *Limiter admits everything.
type Limiter struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	rate     *rate.Limiter
}

// NewLimiter builds a pool. capacity <= 0 means unbounded concurrency and
// rps <= 0 means no rate limit.
func NewLimiter(name string, capacity int, rps float64, burst int) *Limiter {
	l := &Limiter{name: name, capacity: int64(capacity)}
	if capacity > 0 {
		l.sem = semaphore.NewWeighted(int64(capacity))
	}
	if rps > 0 {
		if burst <= 0 {
			burst = max(1, capacity)
		}
		l.rate = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// Acquire blocks for a slot and a token. The returned release must be
// called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%s pool: %w: %w", l.name, ErrPoolSaturated, err)
		}
	}
	release := func() {
		if l.sem != nil {
			l.sem.Release(1)
		}
	}
	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			release()
			return nil, fmt.Errorf("%s rate limit: %w: %w", l.name, ErrPoolSaturated, err)
		}
	}
	return release, nil
}

// Do runs fn inside the pool.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

func (l *Limiter) Capacity() int {
	if l == nil {
		return 0
	}
	return int(l.capacity)
}
