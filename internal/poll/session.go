// Package poll detects filesystem changes under a root directory by polling.
//
// Files are split into two tiers. A small hot set of recently active files is
// checked on every cycle, while the remaining cold files are swept in chunks
// sized so that a full sweep fits in the cold interval. When the cold sweep
// drains, the tree is traversed again and diffed against what is known.
package poll

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/TFMV/pollwatch/internal/walk"
	"go.uber.org/zap"
	"gopkg.in/tomb.v2"
)

// Session is one polling watch over a root directory. All state is owned by
// the session's polling goroutine; only Dispose, Close, Done and Stats may be
// called from other goroutines.
type Session struct {
	root        string
	opts        Options
	constraints walk.Constraints
	logger      *zap.Logger

	tomb    tomb.Tomb
	aborted atomic.Bool

	// Set until the first cycle and its ready event have completed.
	initial  bool
	rescanAt int64

	tiers  *tierStore
	events *emitter
	stats  counters
	now    func() time.Time
}

// Start validates opts, begins watching root and returns the running session.
func Start(root string, handler Handler, opts Options) (*Session, error) {
	s, err := newSession(root, handler, opts)
	if err != nil {
		return nil, err
	}
	s.start()
	return s, nil
}

// Watch is Start for callers that only need to stop the session.
func Watch(root string, handler Handler, opts Options) (Disposer, error) {
	s, err := Start(root, handler, opts)
	if err != nil {
		return nil, err
	}
	return s.Dispose, nil
}

func newSession(root string, handler Handler, opts Options) (*Session, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving root %s: %w", root, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = walk.NewLogger(opts.LogLevel)
	}

	s := &Session{
		root:        abs,
		opts:        opts,
		constraints: opts.constraints(abs),
		logger:      logger.Named("poll").With(zap.String("root", abs)),
		initial:     true,
		rescanAt:    -1,
		now:         time.Now,
	}
	s.tiers = newTierStore(opts, &s.stats)
	s.events = &emitter{
		handler:       handler,
		ignoreInitial: opts.IgnoreInitial,
		ignoreReady:   opts.IgnoreReady,
		aborted:       &s.aborted,
		stats:         &s.stats,
	}
	return s, nil
}

func (s *Session) start() {
	s.tomb.Go(s.run)
}

// run is the polling loop. The next cycle is scheduled only once the current
// one has finished, so cycles never overlap.
func (s *Session) run() error {
	ctx := s.tomb.Context(context.Background())

	s.logger.Info("polling started",
		zap.Duration("interval_hot", s.opts.PollingIntervalHot),
		zap.Duration("interval_cold", s.opts.PollingIntervalCold),
	)
	defer s.logger.Info("polling stopped")

	if s.aborted.Load() {
		return nil
	}
	s.startup(ctx)

	timer := time.NewTimer(s.opts.PollingIntervalHot)
	defer timer.Stop()

	for {
		select {
		case <-s.tomb.Dying():
			return nil
		case <-timer.C:
		}
		if s.aborted.Load() {
			return nil
		}
		s.refresh(ctx)
		timer.Reset(s.opts.PollingIntervalHot)
	}
}

// startup runs the initial cycle and announces readiness.
func (s *Session) startup(ctx context.Context) {
	s.refresh(ctx)
	s.emit(EventReady, s.root)
	s.initial = false
}

// refresh runs one cycle: a rescan when the cold tier has drained, then the
// hot sweep, then one cold chunk.
func (s *Session) refresh(ctx context.Context) {
	if s.tiers.cold.Len() == 0 {
		if err := s.rescan(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.stats.rescansAborted.Add(1)
				return
			}
			s.stats.rescansFailed.Add(1)
			s.logger.Warn("rescan failed", zap.Error(err))
		}
	}

	s.checkFiles(s.tiers.hotPaths())
	s.checkFiles(s.tiers.nextChunk())
}

func (s *Session) emit(event Event, path string) {
	s.events.emit(event, path, s.initial)
}

// Dispose stops the session. No event is delivered once it returns, except
// by a handler call that was already running on the polling goroutine. It
// is idempotent and may be called from within the handler.
func (s *Session) Dispose() {
	if s.aborted.CompareAndSwap(false, true) {
		s.logger.Debug("disposing session")
		s.tomb.Kill(nil)
	}
}

// Close disposes the session and waits for the polling goroutine to exit.
// It must not be called from within the handler.
func (s *Session) Close() error {
	s.Dispose()
	return s.tomb.Wait()
}

// Done is closed once the polling goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.tomb.Dead()
}

// Root returns the absolute root path being watched.
func (s *Session) Root() string {
	return s.root
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return s.stats.snapshot()
}
