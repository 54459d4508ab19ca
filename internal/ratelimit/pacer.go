// internal/ratelimit/pacer.go
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out actions against the crawled site. Every pause first takes
// a token from a shared bucket, then sleeps a random duration in the
// requested window scaled by a global factor.
type Pacer struct {
	limiter *rate.Limiter
	scale   float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPacer creates a pacer allowing actionsPerSecond pauses to complete per
// second with the given burst. scale multiplies every jitter window; zero
// disables the jitter sleep.
func NewPacer(actionsPerSecond float64, burst int, scale float64) *Pacer {
	if actionsPerSecond <= 0 {
		actionsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 3
	}
	if scale < 0 {
		scale = 0
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(actionsPerSecond), burst),
		scale:   scale,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pause blocks for a jittered duration in [min, max)
func (p *Pacer) Pause(ctx context.Context, min, max time.Duration) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	d := p.Jitter(min, max)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Jitter returns a scaled random duration in [min, max)
func (p *Pacer) Jitter(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(p.rnd.Int63n(int64(span)))
	}
	return time.Duration(float64(d) * p.scale)
}

