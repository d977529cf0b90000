package poll

import (
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// coldSet is an insertion ordered set drained from the front. Deletions are
// lazy: the path leaves the membership map and is skipped when its slot in
// the queue comes up.
type coldSet struct {
	queue   []string
	members map[string]struct{}
}

func newColdSet(paths []string) *coldSet {
	c := &coldSet{
		queue:   paths,
		members: make(map[string]struct{}, len(paths)),
	}
	for _, p := range paths {
		c.members[p] = struct{}{}
	}
	return c
}

func (c *coldSet) Len() int {
	return len(c.members)
}

func (c *coldSet) Has(path string) bool {
	_, ok := c.members[path]
	return ok
}

func (c *coldSet) Add(path string) {
	if _, ok := c.members[path]; ok {
		return
	}
	c.members[path] = struct{}{}
	c.queue = append(c.queue, path)
}

func (c *coldSet) Delete(path string) {
	delete(c.members, path)
	if len(c.members) == 0 {
		c.queue = c.queue[:0]
	}
}

// Consume removes and returns up to n paths from the front of the set.
func (c *coldSet) Consume(n int) []string {
	if n <= 0 || len(c.members) == 0 {
		return nil
	}
	out := make([]string, 0, min(n, len(c.members)))
	i := 0
	for ; i < len(c.queue) && len(out) < n; i++ {
		p := c.queue[i]
		if _, ok := c.members[p]; !ok {
			continue
		}
		delete(c.members, p)
		out = append(out, p)
	}
	c.queue = c.queue[i:]
	return out
}

// tierStore owns everything the session knows about the tree: the known
// directories and files, the last observed mtime of each file and the split
// of files into the hot and cold tiers.
//
// Hot and cold paths are always known files; removeFile drops a path from
// every structure at once.
type tierStore struct {
	directories map[string]struct{}
	files       map[string]struct{}
	mtimes      map[string]int64

	cold      *coldSet
	hot       *simplelru.LRU[string, struct{}]
	chunkSize int

	intervalCold   time.Duration
	intervalHot    time.Duration
	requeueEvicted bool
	stats          *counters

	shuffle func(n int, swap func(i, j int))
}

func newTierStore(opts Options, stats *counters) *tierStore {
	t := &tierStore{
		directories:    make(map[string]struct{}),
		files:          make(map[string]struct{}),
		mtimes:         make(map[string]int64),
		cold:           newColdSet(nil),
		intervalCold:   opts.PollingIntervalCold,
		intervalHot:    opts.PollingIntervalHot,
		requeueEvicted: opts.RequeueEvicted,
		stats:          stats,
		shuffle:        rand.Shuffle,
	}
	// simplelru only fails for a non-positive size, which Validate rules out.
	hot, err := simplelru.NewLRU[string, struct{}](max(opts.HotCapacity, 1), t.onEvict)
	if err != nil {
		panic(err)
	}
	t.hot = hot
	return t
}

// onEvict runs for capacity evictions and for explicit removals alike; only
// paths that are still known were pushed out by capacity.
func (t *tierStore) onEvict(path string, _ struct{}) {
	if _, known := t.files[path]; !known {
		return
	}
	t.stats.evictions.Add(1)
	if t.requeueEvicted {
		t.cold.Add(path)
	}
}

func (t *tierStore) addDir(path string) {
	t.directories[path] = struct{}{}
}

func (t *tierStore) removeDir(path string) {
	delete(t.directories, path)
}

// addFile starts tracking path with a baseline mtime. New files go to the hot
// tier, or to the cold tier when hot is false.
func (t *tierStore) addFile(path string, baseline int64, hot bool) {
	t.files[path] = struct{}{}
	t.mtimes[path] = baseline
	if hot {
		t.hot.Add(path, struct{}{})
	} else {
		t.cold.Add(path)
	}
}

// touch records a detected modification and promotes path to the hot tier.
func (t *tierStore) touch(path string, mtime int64) {
	t.cold.Delete(path)
	t.hot.Add(path, struct{}{})
	t.mtimes[path] = mtime
}

func (t *tierStore) removeFile(path string) {
	delete(t.files, path)
	t.cold.Delete(path)
	t.hot.Remove(path)
	delete(t.mtimes, path)
}

func (t *tierStore) mtime(path string) (int64, bool) {
	m, ok := t.mtimes[path]
	return m, ok
}

// hotPaths returns the hot tier from least to most recently touched.
func (t *tierStore) hotPaths() []string {
	return t.hot.Keys()
}

func (t *tierStore) nextChunk() []string {
	return t.cold.Consume(t.chunkSize)
}

// reseed refills the cold tier with a random permutation of every known file
// and sizes the chunks so that one sweep fits in a cold interval.
func (t *tierStore) reseed() {
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	t.shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
	t.cold = newColdSet(paths)
	t.chunkSize = chunkSize(len(paths), t.intervalCold, t.intervalHot)
}

// chunkSize spreads size paths over the cycles of one cold interval, keeping
// one cycle of headroom for the hot sweep.
func chunkSize(size int, cold, hot time.Duration) int {
	ticks := float64(cold)/float64(hot) - 1
	return int(math.Ceil(float64(size) / ticks))
}
