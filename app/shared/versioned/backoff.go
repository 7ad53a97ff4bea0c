package versioned

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// cappedExponential yields min(base*2^attempt, cap) plus up to one base of jitter.
type cappedExponential struct {
	base    time.Duration
	cap     time.Duration
	attempt int
	jitter  func() float64
}

var _ backoff.BackOff = (*cappedExponential)(nil)

func newCappedExponential(base, cap time.Duration, jitter func() float64) *cappedExponential {
	if jitter == nil {
		jitter = rand.Float64
	}
	return &cappedExponential{base: base, cap: cap, jitter: jitter}
}

func (b *cappedExponential) NextBackOff() time.Duration {
	d := Delay(b.base, b.cap, b.attempt)
	b.attempt++
	return d + time.Duration(b.jitter()*float64(b.base))
}

func (b *cappedExponential) Reset() { b.attempt = 0 }

// Delay returns the un-jittered wait before retry number attempt (zero based).
func Delay(base, cap time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
