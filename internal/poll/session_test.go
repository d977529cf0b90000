package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TFMV/pollwatch/internal/walk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupReportsInventoryThenReady(t *testing.T) {
	fsys := newFakeFS()
	fsys.mkdir("/w/d")
	fsys.write("/w/a", 5_000)
	fsys.write("/w/d/b", 5_000)

	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{})
	s.startup(context.Background())

	assert.Equal(t, []record{
		{EventAddDir, "/w/d"},
		{EventAdd, "/w/a"},
		{EventAdd, "/w/d/b"},
		{EventReady, "/w"},
	}, rec.take())
	assert.False(t, s.initial)
	assert.Empty(t, s.tiers.hotPaths(), "initial inventory must stay cold")
	assert.Equal(t, 1, fsys.traversals)
}

func TestIgnoreInitialDeliversOnlyReady(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 5_000)

	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreInitial: true})
	s.startup(context.Background())
	assert.Equal(t, []record{{EventReady, "/w"}}, rec.take())

	fsys.write("/w/b", 5_000)
	s.refresh(context.Background())
	assert.Equal(t, []record{{EventAdd, "/w/b"}}, rec.take())
	assert.Equal(t, uint64(2), s.Stats().Added)
}

func TestIgnoreReady(t *testing.T) {
	rec := newRecorder()
	s := newTestSession(t, newFakeFS(), rec, Options{IgnoreReady: true})
	s.startup(context.Background())
	assert.Empty(t, rec.take())
}

func TestNewFileIsHotWithoutSpuriousChange(t *testing.T) {
	fsys := newFakeFS()
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)

	fsys.write("/w/new", testClock.UnixMilli()-5)
	s.refresh(ctx)
	assert.Equal(t, []record{{EventAdd, "/w/new"}}, rec.take())
	assert.Equal(t, []string{"/w/new"}, s.tiers.hotPaths())

	recorded, ok := s.tiers.mtime("/w/new")
	require.True(t, ok)
	assert.Equal(t, testClock.UnixMilli()-1, recorded)

	s.refresh(ctx)
	s.refresh(ctx)
	assert.Empty(t, rec.take())

	// Several writes between two checks produce one change.
	fsys.write("/w/new", 20_000)
	fsys.write("/w/new", 20_005)
	s.refresh(ctx)
	s.refresh(ctx)
	assert.Equal(t, []record{{EventChange, "/w/new"}}, rec.take())
}

func TestColdChangePromotesToHot(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 1_000)
	fsys.write("/w/b", 1_000)

	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreInitial: true, IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)
	assert.Equal(t, 0, s.tiers.cold.Len(), "one chunk covers the whole sweep")

	fsys.write("/w/b", 30_000)
	s.refresh(ctx)
	assert.Equal(t, []record{{EventChange, "/w/b"}}, rec.take())
	assert.Equal(t, []string{"/w/b"}, s.tiers.hotPaths())
	assert.False(t, s.tiers.cold.Has("/w/b"))

	recorded, _ := s.tiers.mtime("/w/b")
	assert.Equal(t, int64(30_000), recorded)
}

func TestStatFailures(t *testing.T) {
	fsys := newFakeFS()
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)

	fsys.write("/w/f", 1_000)
	s.refresh(ctx)
	require.Equal(t, []record{{EventAdd, "/w/f"}}, rec.take())

	fsys.statErr["/w/f"] = errors.New("permission denied")
	s.refresh(ctx)
	assert.Empty(t, rec.take())
	assert.Contains(t, s.tiers.files, "/w/f")
	assert.NotZero(t, s.Stats().StatFailures)

	delete(fsys.statErr, "/w/f")
	fsys.remove("/w/f")
	s.refresh(ctx)
	assert.Equal(t, []record{{EventUnlink, "/w/f"}}, rec.take())
	assert.NotContains(t, s.tiers.files, "/w/f")
	assert.NotContains(t, s.tiers.mtimes, "/w/f")
	assert.Empty(t, s.tiers.hotPaths())
	assert.False(t, s.tiers.cold.Has("/w/f"))
}

func TestRescanAppliesRemovalsBeforeAdditions(t *testing.T) {
	fsys := newFakeFS()
	fsys.mkdir("/w/a")
	fsys.write("/w/a/f", 1_000)

	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)
	rec.take()

	fsys.remove("/w/a/f")
	fsys.rmdir("/w/a")
	fsys.mkdir("/w/b")
	fsys.write("/w/b/g", 1_000)
	s.refresh(ctx)

	assert.Equal(t, []record{
		{EventUnlinkDir, "/w/a"},
		{EventUnlink, "/w/a/f"},
		{EventAddDir, "/w/b"},
		{EventAdd, "/w/b/g"},
	}, rec.take())
}

func TestEmptyRootRescansEveryCycle(t *testing.T) {
	fsys := newFakeFS()
	s := newTestSession(t, fsys, newRecorder(), Options{})
	ctx := context.Background()
	s.startup(ctx)
	s.refresh(ctx)
	s.refresh(ctx)
	assert.Equal(t, 3, fsys.traversals)
	assert.Equal(t, uint64(3), s.Stats().Rescans)
}

func TestColdSweepSpreadsOverCycles(t *testing.T) {
	fsys := newFakeFS()
	for _, p := range []string{"/w/1", "/w/2", "/w/3", "/w/4", "/w/5"} {
		fsys.write(p, 1_000)
	}
	// 250ms / 50ms - 1 = 4 cycles per sweep, so chunks of 2.
	s := newTestSession(t, fsys, newRecorder(), Options{PollingIntervalCold: 250 * time.Millisecond})
	ctx := context.Background()
	s.startup(ctx)
	assert.Equal(t, 2, s.tiers.chunkSize)
	assert.Equal(t, 3, s.tiers.cold.Len())

	s.refresh(ctx)
	assert.Equal(t, 1, s.tiers.cold.Len())
	s.refresh(ctx)
	assert.Equal(t, 0, s.tiers.cold.Len())
	assert.Equal(t, 1, fsys.traversals)

	s.refresh(ctx)
	assert.Equal(t, 2, fsys.traversals)
	assert.Equal(t, uint64(7), s.Stats().StatChecks)
}

func TestTraversalAbortEmitsNothing(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 1_000)
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.refresh(ctx)

	assert.Empty(t, rec.take())
	assert.Empty(t, s.tiers.files)
	assert.Equal(t, uint64(1), s.Stats().RescansAborted)
	assert.Zero(t, s.Stats().Rescans)
}

func TestTraversalFailureKeepsKnownState(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 1_000)
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)
	rec.take()

	fsys.traverseErr = errors.New("input/output error")
	s.refresh(ctx)
	assert.Empty(t, rec.take())
	assert.Contains(t, s.tiers.files, "/w/a")
	assert.Equal(t, uint64(1), s.Stats().RescansFailed)
}

func TestZeroMtimeStillReportsChange(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/epoch", 0)
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreInitial: true, IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)
	s.tiers.mtimes["/w/epoch"] = 0

	fsys.write("/w/epoch", 1)
	s.refresh(ctx)
	assert.Equal(t, []record{{EventChange, "/w/epoch"}}, rec.take())
}

func TestDisposeSuppressesDelivery(t *testing.T) {
	fsys := newFakeFS()
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{IgnoreReady: true})
	ctx := context.Background()
	s.startup(ctx)

	fsys.write("/w/late", 1_000)
	s.Dispose()
	s.Dispose()
	s.refresh(ctx)
	s.emit(EventReady, testRoot)

	assert.Empty(t, rec.take())
	assert.Zero(t, s.Stats().Delivered)
}

func TestDisposeDuringTraversal(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 1_000)
	rec := newRecorder()
	s := newTestSession(t, fsys, rec, Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	s.opts.Traverse = func(ctx context.Context, root string, c walk.Constraints) (walk.Snapshot, error) {
		close(entered)
		<-release
		// Resolve as if the collaborator ignored cancellation.
		return fsys.traverse(context.Background(), root, c)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.startup(context.Background())
	}()

	<-entered
	s.Dispose()
	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("startup did not return")
	}

	assert.Empty(t, rec.take())
	assert.Zero(t, s.Stats().Delivered)
}

func TestStartValidatesOptions(t *testing.T) {
	noop := func(Event, string) {}

	tests := []struct {
		name string
		opts Options
		err  error
	}{
		{"defaults", Options{}, nil},
		{"cold equals hot", Options{PollingIntervalCold: time.Second, PollingIntervalHot: time.Second}, ErrInvalidInterval},
		{"cold below hot", Options{PollingIntervalCold: 10 * time.Millisecond}, ErrInvalidInterval},
		{"negative hot", Options{PollingIntervalHot: -time.Millisecond}, ErrInvalidInterval},
		{"negative capacity", Options{HotCapacity: -1}, ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)

			_, err = Start(t.TempDir(), noop, tt.opts)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Start(t.TempDir(), nil, Options{})
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestSessionLoop(t *testing.T) {
	fsys := newFakeFS()
	fsys.write("/w/a", 1_000)
	rec := newRecorder()

	s, err := Start(testRoot, rec.handle, Options{
		IgnoreInitial:       true,
		PollingIntervalCold: 100 * time.Millisecond,
		PollingIntervalHot:  10 * time.Millisecond,
		Traverse:            fsys.traverse,
		Stat:                fsys.stat,
	})
	require.NoError(t, err)
	assert.Equal(t, testRoot, s.Root())

	waitRecord(t, rec, record{EventReady, testRoot})

	fsys.write("/w/b", time.Now().UnixMilli()-1_000)
	waitRecord(t, rec, record{EventAdd, "/w/b"})

	fsys.write("/w/b", time.Now().UnixMilli()+1_000)
	waitRecord(t, rec, record{EventChange, "/w/b"})

	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after Close")
	}

	rec.take()
	fsys.write("/w/c", 1_000)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.take())
}

func TestDisposeFromHandler(t *testing.T) {
	fsys := newFakeFS()
	var s *Session
	started := make(chan struct{})
	calls := 0

	handler := func(event Event, path string) {
		<-started
		calls++
		s.Dispose()
	}
	fsys.write("/w/a", 1_000)
	fsys.write("/w/b", 1_000)

	var err error
	s, err = Start(testRoot, handler, Options{Traverse: fsys.traverse, Stat: fsys.stat})
	require.NoError(t, err)
	close(started)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, 1, calls)
}

func waitRecord(t *testing.T, rec *recorder, want record) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-rec.notify:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s", want.Event, want.Path)
		}
	}
}
