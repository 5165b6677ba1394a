package clients

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between sequential calls to a
// rate-limited upstream. Violating upstream pacing causes throttling,
// so this is a correctness requirement for callers, not an optimization.
// The sleep function is injectable so tests do not depend on the wall clock.
type Pacer struct {
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer with the given minimum inter-call interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		sleep:    sleepCtx,
	}
}

// Wait blocks until the pacing interval since the previous call has
// elapsed. The first call never blocks. Concurrent callers are
// serialized so the interval holds across overlapping sync runs that
// share one pacer.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if remaining := p.interval - time.Since(p.last); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.last = time.Now()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
