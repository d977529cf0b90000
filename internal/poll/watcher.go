package poll

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultEventBuffer is the capacity of a Watcher's event channel.
const DefaultEventBuffer = 64

// Watcher exposes a session through an fsnotify style channel API, for code
// written against fsnotify.Watcher that must run where native notifications
// are unavailable. add and addDir arrive as Create, change as Write, unlink
// and unlinkDir as Remove. The ready event closes Ready instead.
//
// When the consumer falls behind, the polling goroutine blocks on the channel
// and detection pauses until events are drained or the watcher is closed.
type Watcher struct {
	session   *Session
	events    chan fsnotify.Event
	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
}

// NewWatcher starts polling root and returns the channel adapter.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	w := &Watcher{
		events: make(chan fsnotify.Event, DefaultEventBuffer),
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	opts.IgnoreReady = false

	s, err := newSession(root, w.handle, opts)
	if err != nil {
		return nil, err
	}
	w.session = s
	s.start()

	go func() {
		<-s.Done()
		close(w.events)
		close(w.closed)
	}()
	return w, nil
}

func (w *Watcher) handle(event Event, path string) {
	if event == EventReady {
		w.readyOnce.Do(func() { close(w.ready) })
		return
	}
	select {
	case w.events <- fsnotify.Event{Name: path, Op: event.Op()}:
	case <-w.session.tomb.Dying():
	}
}

// Events returns the event channel. It is closed after Close.
func (w *Watcher) Events() <-chan fsnotify.Event {
	return w.events
}

// Ready is closed once the initial scan has completed.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Session returns the underlying polling session.
func (w *Watcher) Session() *Session {
	return w.session
}

// Close stops polling and waits for the event channel to be closed.
func (w *Watcher) Close() error {
	err := w.session.Close()
	<-w.closed
	return err
}
