// Package events groups typed trace emitters per runtime subsystem, so call
// sites stay short and event names stay consistent.
package events

import (
	"time"

	"github.com/atomicstack/termrun/internal/logging"
)

type RuntimeTracer struct{}

type CommandTracer struct{}

type SubscriptionTracer struct{}

type FrameTracer struct{}

var (
	Runtime      = RuntimeTracer{}
	Command      = CommandTracer{}
	Subscription = SubscriptionTracer{}
	Frame        = FrameTracer{}
)

func (RuntimeTracer) Start(payload map[string]interface{}) {
	logging.Trace("runtime.start", payload)
}

func (RuntimeTracer) Quit(err error) {
	payload := map[string]interface{}{}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("runtime.quit", payload)
}

func (RuntimeTracer) Dropped(msgType string) {
	logging.Trace("runtime.dropped", map[string]interface{}{"type": msgType})
}

func (CommandTracer) Queue(name string) {
	logging.Trace("command.queue", map[string]interface{}{"name": name})
}

func (CommandTracer) Skip(name string) {
	logging.Trace("command.skip", map[string]interface{}{"name": name})
}

func (CommandTracer) NoOp(name string) {
	logging.Trace("command.noop", map[string]interface{}{"name": name})
}

func (CommandTracer) Result(name, msgType string) {
	logging.Trace("command.result", map[string]interface{}{"name": name, "type": msgType})
}

func (CommandTracer) Error(name string, err error) {
	if err == nil {
		return
	}
	logging.Trace("command.error", map[string]interface{}{"name": name, "error": err.Error()})
}

func (SubscriptionTracer) Start(name string) {
	logging.Trace("subscription.start", map[string]interface{}{"name": name})
}

func (SubscriptionTracer) Stop(name string) {
	logging.Trace("subscription.stop", map[string]interface{}{"name": name})
}

func (SubscriptionTracer) Error(name string, err error) {
	if err == nil {
		return
	}
	logging.Trace("subscription.error", map[string]interface{}{"name": name, "error": err.Error()})
}

func (FrameTracer) Slow(d time.Duration) {
	logging.Trace("frame.slow", map[string]interface{}{"duration": d.String()})
}
