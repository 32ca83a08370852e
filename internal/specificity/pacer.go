package specificity

import (
	"context"
	"time"
)

// Pacer serializes callers and spaces consecutive calls at least delay
// apart. A caller holds its turn while waiting out the delay and while its
// call runs, so at most one call is ever in flight.
type Pacer struct {
	turn  chan struct{}
	delay time.Duration
	last  time.Time
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{turn: make(chan struct{}, 1), delay: delay}
}

// Do waits for the caller's turn and the pacing delay, then runs fn. It
// returns ctx's error if the context ends first.
func (p *Pacer) Do(ctx context.Context, fn func() error) error {
	select {
	case p.turn <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.turn }()

	if !p.last.IsZero() && p.delay > 0 {
		if wait := p.delay - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	defer func() { p.last = time.Now() }()
	return fn()
}
