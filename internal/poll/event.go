package poll

import "github.com/fsnotify/fsnotify"

// Event is the kind of change reported to a Handler.
type Event string

// Event kinds
const (
	EventAdd       Event = "add"
	EventAddDir    Event = "addDir"
	EventChange    Event = "change"
	EventUnlink    Event = "unlink"
	EventUnlinkDir Event = "unlinkDir"
	EventReady     Event = "ready"
)

// Handler receives every delivered event together with the absolute path it
// concerns. It is invoked synchronously from the session's polling goroutine.
type Handler func(event Event, path string)

// Disposer terminates a session. Repeated calls are no-ops.
type Disposer func()

func (e Event) String() string {
	return string(e)
}

// IsDir reports whether the event concerns a directory.
func (e Event) IsDir() bool {
	return e == EventAddDir || e == EventUnlinkDir
}

// Op maps the event onto the closest fsnotify operation. Ready has no
// equivalent and maps to the zero Op.
func (e Event) Op() fsnotify.Op {
	switch e {
	case EventAdd, EventAddDir:
		return fsnotify.Create
	case EventChange:
		return fsnotify.Write
	case EventUnlink, EventUnlinkDir:
		return fsnotify.Remove
	default:
		return 0
	}
}
