// Package backoff provides reconnect wait policies with optional jitter.
package backoff

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Policy describes how long to wait between connection attempts.
// A zero Multiplier (or 1.0) yields a fixed delay; larger values grow the
// delay exponentially up to Max.
type Policy struct {
	Initial    time.Duration // Delay after the first failure
	Max        time.Duration // Upper bound for the delay (0 = no bound)
	Multiplier float64       // Growth factor per consecutive failure
	AddJitter  bool          // Add up to 25% randomness to avoid thundering herd
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(d time.Duration) Policy {
	return Policy{Initial: d, Max: d, Multiplier: 1.0}
}

// Default returns the reconnect policy used when none is configured:
// a fixed one second wait, matching the gateway's expected retry cadence.
func Default() Policy {
	return Fixed(time.Second)
}

// Delay returns the wait duration before the given attempt.
// attempt is 1-based: Delay(1) is the wait after the first failure.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}

	mult := p.Multiplier
	if mult <= 0 {
		mult = 1.0
	}

	d := initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}

	if p.AddJitter && d > 0 {
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(d/4) + 1))
		randMu.Unlock()
		d += jitter
	}

	return d
}

// Wait sleeps for the given duration or until ctx is cancelled,
// whichever comes first. Returns the context error on cancellation.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
