package termrun

import (
	"context"
	"time"
)

// frameScheduler paces the render loop. It is a fixed-delay scheduler: each
// wait sleeps the full interval regardless of how long the previous frame
// took, so a slow frame delays subsequent ones rather than triggering
// catch-up frames.
type frameScheduler struct {
	interval time.Duration
}

func newFrameScheduler(fps int) *frameScheduler {
	return &frameScheduler{interval: time.Second / time.Duration(fps)}
}

// wait sleeps until the next frame is due. Reports false when ctx is
// cancelled before the interval elapses.
func (f *frameScheduler) wait(ctx context.Context) bool {
	t := time.NewTimer(f.interval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
