package poll

import (
	"sync/atomic"
	"time"
)

// Stats reports session activity. Counters are cumulative since Start; the
// sizes describe the state left by the most recent completed rescan.
type Stats struct {
	Rescans        uint64 // Completed rescans
	RescansAborted uint64 // Rescans cut short by disposal
	RescansFailed  uint64 // Rescans skipped because the traversal failed
	StatChecks     uint64 // Freshness checks performed
	StatFailures   uint64 // Checks that failed with an error other than not-found
	Evictions      uint64 // Paths pushed out of the hot set by capacity

	Added        uint64 // add events detected
	AddedDirs    uint64 // addDir events detected
	Changed      uint64 // change events detected
	Unlinked     uint64 // unlink events detected
	UnlinkedDirs uint64 // unlinkDir events detected
	Delivered    uint64 // Events that reached the handler

	KnownDirectories int           // Directories found by the last rescan
	KnownFiles       int           // Files found by the last rescan
	ChunkSize        int           // Cold paths checked per cycle
	LastRescan       time.Duration // Duration of the last rescan
}

// counters is the concurrently readable backing store of Stats.
type counters struct {
	rescans        atomic.Uint64
	rescansAborted atomic.Uint64
	rescansFailed  atomic.Uint64
	statChecks     atomic.Uint64
	statFailures   atomic.Uint64
	evictions      atomic.Uint64

	added        atomic.Uint64
	addedDirs    atomic.Uint64
	changed      atomic.Uint64
	unlinked     atomic.Uint64
	unlinkedDirs atomic.Uint64
	delivered    atomic.Uint64

	knownDirectories atomic.Int64
	knownFiles       atomic.Int64
	chunkSize        atomic.Int64
	lastRescan       atomic.Int64
}

func (c *counters) detected(event Event) {
	switch event {
	case EventAdd:
		c.added.Add(1)
	case EventAddDir:
		c.addedDirs.Add(1)
	case EventChange:
		c.changed.Add(1)
	case EventUnlink:
		c.unlinked.Add(1)
	case EventUnlinkDir:
		c.unlinkedDirs.Add(1)
	}
}

func (c *counters) rescanned(t *tierStore, took time.Duration) {
	c.rescans.Add(1)
	c.knownDirectories.Store(int64(len(t.directories)))
	c.knownFiles.Store(int64(len(t.files)))
	c.chunkSize.Store(int64(t.chunkSize))
	c.lastRescan.Store(int64(took))
}

func (c *counters) snapshot() Stats {
	return Stats{
		Rescans:          c.rescans.Load(),
		RescansAborted:   c.rescansAborted.Load(),
		RescansFailed:    c.rescansFailed.Load(),
		StatChecks:       c.statChecks.Load(),
		StatFailures:     c.statFailures.Load(),
		Evictions:        c.evictions.Load(),
		Added:            c.added.Load(),
		AddedDirs:        c.addedDirs.Load(),
		Changed:          c.changed.Load(),
		Unlinked:         c.unlinked.Load(),
		UnlinkedDirs:     c.unlinkedDirs.Load(),
		Delivered:        c.delivered.Load(),
		KnownDirectories: int(c.knownDirectories.Load()),
		KnownFiles:       int(c.knownFiles.Load()),
		ChunkSize:        int(c.chunkSize.Load()),
		LastRescan:       time.Duration(c.lastRescan.Load()),
	}
}
