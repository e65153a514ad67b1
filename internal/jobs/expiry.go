package jobs

import (
	"context"
	"log"
	"time"

	"SafeDeal/internal/services"
)

// Sweeper is the part of the buyer request store the job drives.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// ExpirySweeper closes expired buyer requests on a fixed cadence.
type ExpirySweeper struct {
	requests Sweeper
	clock    services.Clock
	interval time.Duration
}

func NewExpirySweeper(requests Sweeper, clock services.Clock, interval time.Duration) *ExpirySweeper {
	if clock == nil {
		clock = services.SystemClock
	}
	return &ExpirySweeper{requests: requests, clock: clock, interval: interval}
}

// RunOnce performs a single sweep.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int64, error) {
	return s.requests.SweepExpired(ctx, s.clock())
}

// Run sweeps immediately and then on every tick until ctx is cancelled. A
// failed sweep is logged and retried on the next tick.
func (s *ExpirySweeper) Run(ctx context.Context) {
	log.Printf("⏰ Expiry sweeper started (every %s)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("❌ Expiry sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("⏰ Expiry sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
