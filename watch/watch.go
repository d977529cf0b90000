// Package watch reports filesystem changes under a root directory by polling,
// for mounts where native change notifications are missing or unreliable.
package watch

import (
	internal "github.com/TFMV/pollwatch/internal/poll"
)

// Re-export the poller types from the internal package
type (
	// Event is the kind of change reported to a Handler.
	Event = internal.Event

	// Handler receives every delivered event and the absolute path it concerns.
	Handler = internal.Handler

	// Disposer terminates a session.
	Disposer = internal.Disposer

	// Options configures a polling session.
	Options = internal.Options

	// Session is one running polling watch.
	Session = internal.Session

	// Stats reports session activity.
	Stats = internal.Stats

	// Watcher exposes a session through an fsnotify style channel API.
	Watcher = internal.Watcher

	// TraverseFunc and StatFunc replace the filesystem collaborators.
	TraverseFunc = internal.TraverseFunc
	StatFunc     = internal.StatFunc
)

// Event kinds
const (
	EventAdd       = internal.EventAdd
	EventAddDir    = internal.EventAddDir
	EventChange    = internal.EventChange
	EventUnlink    = internal.EventUnlink
	EventUnlinkDir = internal.EventUnlinkDir
	EventReady     = internal.EventReady
)

// Defaults
const (
	DefaultPollingIntervalCold = internal.DefaultPollingIntervalCold
	DefaultPollingIntervalHot  = internal.DefaultPollingIntervalHot
	DefaultHotCapacity         = internal.DefaultHotCapacity
)

// Errors
var (
	ErrInvalidInterval = internal.ErrInvalidInterval
	ErrInvalidCapacity = internal.ErrInvalidCapacity
	ErrNilHandler      = internal.ErrNilHandler
)

// Start begins watching root and returns the running session.
func Start(root string, handler Handler, opts Options) (*Session, error) {
	return internal.Start(root, handler, opts)
}

// Watch begins watching root and returns a function that stops it.
func Watch(root string, handler Handler, opts Options) (Disposer, error) {
	return internal.Watch(root, handler, opts)
}

// NewWatcher begins watching root and delivers events on a channel.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	return internal.NewWatcher(root, opts)
}
