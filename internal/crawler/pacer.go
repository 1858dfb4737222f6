package crawler

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// pacer spaces fetch slots a politeness delay apart across all workers.
// Each caller reserves the next free slot under the lock, then sleeps
// outside it until the slot arrives, so concurrent workers never compress
// the configured delay.
type pacer struct {
	mu        sync.Mutex
	next      time.Time
	delay     time.Duration
	randomize bool
	rng       *rand.Rand
}

func newPacer(delay time.Duration, randomize bool) *pacer {
	return &pacer{
		delay:     delay,
		randomize: randomize,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// wait blocks until the caller's reserved slot arrives. floor raises the
// spacing for this slot, used for robots.txt crawl-delays that exceed the
// configured delay.
func (p *pacer) wait(ctx context.Context, floor time.Duration) error {
	p.mu.Lock()

	spacing := p.delay
	if floor > spacing {
		spacing = floor
	}
	if p.randomize && spacing > 0 {
		// delay * U(0.5, 1.5)
		spacing = time.Duration(float64(spacing) * (0.5 + p.rng.Float64()))
	}

	now := time.Now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(spacing)

	p.mu.Unlock()

	pause := time.Until(slot)
	if pause <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
