package termrun

import (
	"context"
	"testing"
	"time"
)

func TestFrameIntervalFromFPS(t *testing.T) {
	cases := []struct {
		fps  int
		want time.Duration
	}{
		{60, time.Second / 60},
		{30, time.Second / 30},
		{1, time.Second},
	}
	for _, tc := range cases {
		if got := newFrameScheduler(tc.fps).interval; got != tc.want {
			t.Errorf("fps %d: interval = %v, want %v", tc.fps, got, tc.want)
		}
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	f := newFrameScheduler(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if f.wait(ctx) {
		t.Fatalf("wait returned true on a cancelled context")
	}
}

func TestWaitCompletesInterval(t *testing.T) {
	f := newFrameScheduler(500)
	start := time.Now()
	if !f.wait(context.Background()) {
		t.Fatalf("wait returned false without cancellation")
	}
	if elapsed := time.Since(start); elapsed < f.interval {
		t.Fatalf("wait returned after %v, interval is %v", elapsed, f.interval)
	}
}
