package termrun

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atomicstack/termrun/internal/logging/events"
)

// subscriptionManager supervises the component's long-lived message sources.
// Each subscription runs as one goroutine under a shared context; stop
// cancels that context and waits, which guarantees every deferred finalizer
// inside a Start function has run before stop returns.
type subscriptionManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	emit   func(Msg) bool
	model  func() Model
	report func(error)
}

func newSubscriptionManager(emit func(Msg) bool, model func() Model, report func(error)) *subscriptionManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscriptionManager{ctx: ctx, cancel: cancel, emit: emit, model: model, report: report}
}

// start launches every subscription. Called once, at runtime startup.
func (m *subscriptionManager) start(subs []Subscription) {
	for _, sub := range subs {
		if sub.Start == nil {
			continue
		}
		events.Subscription.Start(sub.Name)
		m.wg.Add(1)
		go func(sub Subscription) {
			defer m.wg.Done()
			defer events.Subscription.Stop(sub.Name)
			err := m.runOne(sub)
			if err != nil && !errors.Is(err, context.Canceled) {
				events.Subscription.Error(sub.Name, err)
				m.report(fmt.Errorf("subscription %q: %w", sub.Name, err))
			}
		}(sub)
	}
}

func (m *subscriptionManager) runOne(sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	emit := func(msg Msg) { m.emit(msg) }
	return sub.Start(m.ctx, emit, m.model)
}

// stop cancels every active subscription and waits for their finalizers.
func (m *subscriptionManager) stop() {
	m.cancel()
	m.wg.Wait()
}
