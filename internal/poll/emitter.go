package poll

import "sync/atomic"

// emitter is the single delivery point of a session. Filters apply in order:
// disposal, ignoreInitial (everything but ready while the initial cycle
// runs), ignoreReady. Delivery is synchronous; a panicking handler is not
// recovered.
type emitter struct {
	handler       Handler
	ignoreInitial bool
	ignoreReady   bool
	aborted       *atomic.Bool
	stats         *counters
}

// emit reports whether the event reached the handler.
func (e *emitter) emit(event Event, path string, initial bool) bool {
	if e.aborted.Load() {
		return false
	}
	e.stats.detected(event)

	if initial && e.ignoreInitial && event != EventReady {
		return false
	}
	if e.ignoreReady && event == EventReady {
		return false
	}

	e.stats.delivered.Add(1)
	e.handler(event, path)
	return true
}
