package poll

import (
	"context"
	"io/fs"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/TFMV/pollwatch/internal/walk"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testRoot = "/w"

// fakeFS is an in-memory tree served through the Traverse and Stat collaborators.
type fakeFS struct {
	mu          sync.Mutex
	dirs        map[string]bool
	files       map[string]int64
	statErr     map[string]error
	traverseErr error
	traversals  int
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		dirs:    make(map[string]bool),
		files:   make(map[string]int64),
		statErr: make(map[string]error),
	}
}

func (f *fakeFS) mkdir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
}

func (f *fakeFS) rmdir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dirs, path)
}

func (f *fakeFS) write(path string, mtime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = mtime
}

func (f *fakeFS) remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
}

func (f *fakeFS) traverse(ctx context.Context, root string, _ walk.Constraints) (walk.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traversals++
	if err := ctx.Err(); err != nil {
		return walk.Snapshot{}, err
	}
	if f.traverseErr != nil {
		return walk.Snapshot{}, f.traverseErr
	}
	var snap walk.Snapshot
	for d := range f.dirs {
		snap.Directories = append(snap.Directories, d)
	}
	for p := range f.files {
		snap.Files = append(snap.Files, p)
	}
	slices.Sort(snap.Directories)
	slices.Sort(snap.Files)
	return snap, nil
}

func (f *fakeFS) stat(path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.statErr[path]; ok {
		return 0, err
	}
	m, ok := f.files[path]
	if !ok {
		return 0, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return m, nil
}

type record struct {
	Event Event
	Path  string
}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []record
	notify chan record
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan record, 256)}
}

func (r *recorder) handle(event Event, path string) {
	r.mu.Lock()
	r.events = append(r.events, record{event, path})
	r.mu.Unlock()
	select {
	case r.notify <- record{event, path}:
	default:
	}
}

// take returns and clears the recorded events.
func (r *recorder) take() []record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

var testClock = time.UnixMilli(10_000)

// newTestSession builds a session wired to fsys that is stepped by hand. The
// default intervals make every cold sweep a single chunk.
func newTestSession(t *testing.T, fsys *fakeFS, rec *recorder, opts Options) *Session {
	t.Helper()
	if opts.PollingIntervalCold == 0 {
		opts.PollingIntervalCold = 100 * time.Millisecond
	}
	if opts.PollingIntervalHot == 0 {
		opts.PollingIntervalHot = 50 * time.Millisecond
	}
	opts.Traverse = fsys.traverse
	opts.Stat = fsys.stat
	opts.Logger = zap.NewNop()

	s, err := newSession(testRoot, rec.handle, opts)
	require.NoError(t, err)
	s.now = func() time.Time { return testClock }
	s.tiers.shuffle = func(int, func(i, j int)) {}
	return s
}
