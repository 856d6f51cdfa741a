package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pacer spaces calls to a rate-limited service: a fixed cooldown between
// consecutive calls plus a longer pause before each call that follows a
// completed burst. The count spans every call made through the same Pacer.
type Pacer struct {
	cooldown   time.Duration
	burstSize  int
	burstPause time.Duration

	mu    sync.Mutex
	calls int
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer. A burstSize of zero disables burst pauses.
func NewPacer(cooldown time.Duration, burstSize int, burstPause time.Duration) *Pacer {
	return &Pacer{
		cooldown:   cooldown,
		burstSize:  burstSize,
		burstPause: burstPause,
		sleep:      sleepContext,
	}
}

// Wait blocks until the next call may be made and counts it.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.calls > 0 {
		wait := p.cooldown
		if p.burstSize > 0 && p.calls%p.burstSize == 0 {
			log.Info().
				Int("calls", p.calls).
				Dur("pause", p.burstPause).
				Msg("Pausing to stay under the extraction rate limit")
			wait += p.burstPause
		}
		if wait > 0 {
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	p.calls++
	return nil
}

// Calls returns the number of calls admitted so far.
func (p *Pacer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
