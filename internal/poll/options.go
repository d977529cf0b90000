package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TFMV/pollwatch/internal/walk"
	"go.uber.org/zap"
)

const (
	// DefaultPollingIntervalCold is the target period of one full cold sweep.
	DefaultPollingIntervalCold = 2 * time.Second

	// DefaultPollingIntervalHot is the delay between the end of one cycle and
	// the start of the next.
	DefaultPollingIntervalHot = 50 * time.Millisecond

	// DefaultHotCapacity bounds the number of recently active files checked on every cycle.
	DefaultHotCapacity = 16
)

var (
	// ErrInvalidInterval is returned when the cold interval does not exceed the hot one.
	ErrInvalidInterval = errors.New("poll: cold polling interval must be greater than hot polling interval")

	// ErrInvalidCapacity is returned for a negative hot set capacity.
	ErrInvalidCapacity = errors.New("poll: hot capacity must not be negative")

	// ErrNilHandler is returned when no handler is given.
	ErrNilHandler = errors.New("poll: handler must not be nil")
)

// TraverseFunc lists every directory and file under root.
type TraverseFunc func(ctx context.Context, root string, c walk.Constraints) (walk.Snapshot, error)

// StatFunc returns the modification time of path in milliseconds. An error
// matching fs.ErrNotExist means the path is gone; any other error is transient.
type StatFunc func(path string) (int64, error)

// Options configures a polling session. Zero values select the defaults.
type Options struct {
	IgnoreInitial bool // Suppress events found before the ready event
	IgnoreReady   bool // Suppress the ready event

	PollingIntervalCold time.Duration // Target period of a full cold sweep
	PollingIntervalHot  time.Duration // Delay between cycles
	HotCapacity         int           // Size of the hot set

	// When set, a path evicted from the hot set goes straight back into the
	// cold set instead of waiting for the next rescan.
	RequeueEvicted bool

	// Traversal constraints
	Depth          int             // Maximum depth below root (0 = unlimited)
	Limit          int             // Maximum entries per rescan (0 = unlimited)
	FollowSymlinks bool            // Whether to follow symbolic links
	Ignore         walk.IgnoreFunc // Predicate for paths to leave out
	IgnorePatterns []string        // Gitignore style patterns, relative to root

	Logger   *zap.Logger
	LogLevel walk.LogLevel // Used when Logger is nil

	// Collaborators, replaceable in tests.
	Traverse TraverseFunc
	Stat     StatFunc
}

func (o Options) withDefaults() Options {
	if o.PollingIntervalCold == 0 {
		o.PollingIntervalCold = DefaultPollingIntervalCold
	}
	if o.PollingIntervalHot == 0 {
		o.PollingIntervalHot = DefaultPollingIntervalHot
	}
	if o.HotCapacity == 0 {
		o.HotCapacity = DefaultHotCapacity
	}
	if o.Traverse == nil {
		o.Traverse = walk.Traverse
	}
	if o.Stat == nil {
		o.Stat = walk.Stat
	}
	return o
}

// Validate checks the options after defaults have been applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.PollingIntervalHot < 0 || o.PollingIntervalCold <= o.PollingIntervalHot {
		return fmt.Errorf("%w (cold %s, hot %s)", ErrInvalidInterval, o.PollingIntervalCold, o.PollingIntervalHot)
	}
	if o.HotCapacity < 0 {
		return ErrInvalidCapacity
	}
	return nil
}

func (o Options) constraints(root string) walk.Constraints {
	return walk.Constraints{
		Depth:          o.Depth,
		Limit:          o.Limit,
		FollowSymlinks: o.FollowSymlinks,
		Ignore:         walk.AnyIgnore(o.Ignore, walk.IgnorePatterns(root, o.IgnorePatterns)),
	}
}
