package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pauser waits between page actions, e.g. after a scroll so the timeline
// can load the next batch.
type Pauser interface {
	Pause(ctx context.Context) error
}

// Pacer sleeps a random delay in [min, max) on every Pause.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rnd      *rand.Rand
}

func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Pacer) Pause(ctx context.Context) error {
	delay := p.calculateDelay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pacer) SetDelay(min, max time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if max < min {
		max = min
	}
	p.minDelay = min
	p.maxDelay = max
}

func (p *Pacer) calculateDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.minDelay == p.maxDelay {
		return p.minDelay
	}

	delta := p.maxDelay - p.minDelay
	return p.minDelay + time.Duration(p.rnd.Int63n(int64(delta)))
}
