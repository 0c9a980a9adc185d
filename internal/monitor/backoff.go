package monitor

import (
	"math/rand/v2"
	"time"
)

// DefaultMaxBackoff caps retry delays.
const DefaultMaxBackoff = 600 * time.Second

// Rand is a source of uniform random integers in [0, n).
type Rand interface {
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Int64N(n int64) int64 {
	return rand.Int64N(n)
}

// ComputeDelay returns a delay of a whole number of seconds drawn uniformly from
// [0, min(maxDelay, 2^attempt)]. Negative attempts count as 0.
func ComputeDelay(attempt int, maxDelay time.Duration, rnd Rand) time.Duration {
	if rnd == nil {
		rnd = globalRand{}
	}
	if attempt < 0 {
		attempt = 0
	}

	maxSeconds := int64(maxDelay / time.Second)
	if maxSeconds <= 0 {
		return 0
	}

	upper := maxSeconds
	if attempt < 62 && int64(1)<<attempt < maxSeconds {
		upper = int64(1) << attempt
	}

	return time.Duration(rnd.Int64N(upper+1)) * time.Second
}

// BackoffPolicy computes jittered exponential retry delays.
type BackoffPolicy struct {
	// MaxDelay caps every delay. Zero means DefaultMaxBackoff.
	MaxDelay time.Duration

	// Rand is the random source. Nil means math/rand/v2.
	Rand Rand
}

// Delay returns the delay before retrying after the given attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxBackoff
	}
	return ComputeDelay(attempt, maxDelay, p.Rand)
}
