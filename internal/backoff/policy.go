// Package backoff computes jittered exponential retry delays.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy describes an exponential backoff schedule.
type Policy struct {
	// Initial is the delay after the first failed attempt.
	Initial time.Duration
	// Max caps every delay. Zero means uncapped.
	Max time.Duration
	// Factor multiplies the delay on each attempt. Values below 1 are treated as 1.
	Factor float64
	// Jitter adds up to this fraction of the delay at random (0.0 to 1.0).
	Jitter float64
}

// DefaultPolicy starts at one second and doubles up to 30s with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay returns the wait after the given failed attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// DelayWithRand is Delay with the random value in [0, 1) supplied by the
// caller.
func (p Policy) DelayWithRand(attempt int, random float64) time.Duration {
	if p.Initial <= 0 {
		return 0
	}
	factor := math.Max(p.Factor, 1)
	exp := math.Max(float64(attempt-1), 0)

	base := float64(p.Initial) * math.Pow(factor, exp)
	total := base + base*p.Jitter*random
	if p.Max > 0 {
		total = math.Min(total, float64(p.Max))
	}
	return time.Duration(math.Round(total))
}
