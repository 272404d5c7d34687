package interview

import (
	"context"
	"log"
	"time"
)

// Watched is what the supervisor observes and signals.
type Watched interface {
	ID() string
	LastActivity() time.Time
	Done() <-chan struct{}
	OnInactivityExceeded()
}

// Supervisor polls activity and signals once when the threshold is exceeded.
// It never mutates session state itself.
type Supervisor struct {
	Interval  time.Duration
	Threshold time.Duration
	Now       func() time.Time
}

// Watch blocks until the target is done, ctx ends, or inactivity is signalled.
func (sv Supervisor) Watch(ctx context.Context, target Watched) {
	interval := sv.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	now := sv.Now
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-target.Done():
			return
		case <-ticker.C:
			idle := now().Sub(target.LastActivity())
			if idle > sv.Threshold {
				log.Printf("[interview] session=%s inactive for %s, closing", target.ID(), idle.Round(time.Second))
				target.OnInactivityExceeded()
				return
			}
		}
	}
}
