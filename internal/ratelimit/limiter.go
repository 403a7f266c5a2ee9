package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window counter shared by every caller of the
// vendor API. At most `calls` admissions happen within any rolling
// `period`; a caller hitting a full window sleeps until the oldest
// admission ages out instead of failing.
type Limiter struct {
	mu         sync.Mutex
	calls      int
	period     time.Duration
	admissions []time.Time
}

func NewLimiter(calls int, period time.Duration) *Limiter {
	return &Limiter{calls: calls, period: period}
}

// Wait blocks until the caller is admitted or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-l.period)

		kept := l.admissions[:0]
		for _, t := range l.admissions {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		l.admissions = kept

		if len(l.admissions) < l.calls {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}

		// Window is full: the oldest admission leaves it first.
		wait := l.admissions[0].Add(l.period).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
