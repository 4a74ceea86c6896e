package termrun

import (
	"context"
	"sync"
	"time"
)

// timerManager schedules one-off and periodic message delivery onto the
// shared channel. Each timer runs as its own goroutine under the manager's
// context; cancelAll cancels that context and waits for every goroutine to
// exit, so no delivery can happen afterwards.
type timerManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	emit   func(Msg) bool
}

func newTimerManager(emit func(Msg) bool) *timerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &timerManager{ctx: ctx, cancel: cancel, emit: emit}
}

// after delivers msg once after d. The returned func cancels the pending
// delivery.
func (tm *timerManager) after(d time.Duration, msg Msg) func() {
	ctx, cancel := context.WithCancel(tm.ctx)
	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			tm.emit(msg)
		case <-ctx.Done():
		}
	}()
	return cancel
}

// every delivers msg repeatedly at interval d until cancelled.
func (tm *timerManager) every(d time.Duration, msg Msg) func() {
	ctx, cancel := context.WithCancel(tm.ctx)
	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if !tm.emit(msg) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}

// cancelAll clears every pending and periodic timer and waits for their
// goroutines to finish.
func (tm *timerManager) cancelAll() {
	tm.cancel()
	tm.wg.Wait()
}
