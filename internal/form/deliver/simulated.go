package deliver

import (
	"context"
	"time"

	"github.com/yanizio/contact/internal/form"
)

// DefaultSimulatedDelay stands in for network latency.
const DefaultSimulatedDelay = 2 * time.Second

// Simulated accepts every submission after Delay.  It only fails when ctx
// ends first.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Deliver(ctx context.Context, _ form.Snapshot) error {
	d := s.Delay
	if d <= 0 {
		d = DefaultSimulatedDelay
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
