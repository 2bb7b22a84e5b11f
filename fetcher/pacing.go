package fetcher

import (
	"math/rand/v2"
	"time"
)

// Pacer sleeps for a random duration between Min and Max.
type Pacer struct {
	Min, Max time.Duration
	sleep    func(time.Duration)
}

func NewPacer(min, max time.Duration) *Pacer {
	return &Pacer{Min: min, Max: max, sleep: time.Sleep}
}

// NoPacing returns a pacer that never sleeps.
func NoPacing() *Pacer {
	return &Pacer{sleep: func(time.Duration) {}}
}

// Wait blocks for one jittered delay. It is not cancellable.
func (p *Pacer) Wait() {
	if p == nil {
		return
	}
	if d := p.Next(); d > 0 {
		p.sleep(d)
	}
}

// Next picks the next delay.
func (p *Pacer) Next() time.Duration {
	return Jitter(p.Min, p.Max)
}

// Jitter returns a uniformly random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}
