package llm

import (
	"context"
	"sync"
	"time"
)

// rpsLimiter is a token bucket refilled at a fixed rate.
type rpsLimiter struct {
	tokens   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// newRPSLimiter allows up to rps calls per second with the given burst.
// It returns nil (no limit) when rps <= 0.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	l := &rpsLimiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}

	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
				}
			case <-l.stopCh:
				return
			}
		}
	}()
	return l
}

// Acquire blocks until a token is available or ctx is done.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// WithRateLimit throttles Generate to rps calls per second across all
// sessions sharing the client. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		lim := newRPSLimiter(rps, burst)
		if lim == nil {
			return next
		}
		return &limited{next: next, lim: lim}
	}
}

type limited struct {
	next Client
	lim  *rpsLimiter
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Close() error {
	l.lim.Stop()
	return l.next.Close()
}

func (l *limited) Generate(ctx context.Context, req Request) (Response, error) {
	if err := l.lim.Acquire(ctx); err != nil {
		return Response{}, err
	}
	return l.next.Generate(ctx, req)
}
