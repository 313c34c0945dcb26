package web

import (
	"context"
	"math/rand"
	"time"
)

// Delay produces uniformly distributed pauses in [Min, Max].
type Delay struct {
	Min time.Duration
	Max time.Duration

	// Rand returns a value in [0, 1), math/rand when nil
	Rand func() float64
}

func (d Delay) Next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}

	r := rand.Float64
	if d.Rand != nil {
		r = d.Rand
	}

	return d.Min + time.Duration(r()*float64(d.Max-d.Min))
}

// Sleeper pauses the caller, it returns early with ctx.Err() on cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
