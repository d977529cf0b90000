package poll

import (
	"context"
	"slices"

	"go.uber.org/zap"
)

// difference splits next against prev into the paths that appeared and the
// paths that disappeared. Added paths keep the order of next; deleted paths
// are sorted.
func difference(prev map[string]struct{}, next []string) (added, deleted []string) {
	seen := make(map[string]struct{}, len(next))
	for _, p := range next {
		seen[p] = struct{}{}
		if _, ok := prev[p]; !ok {
			added = append(added, p)
		}
	}
	for p := range prev {
		if _, ok := seen[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	slices.Sort(deleted)
	return added, deleted
}

// rescan traverses the root and reconciles the snapshot with the tier store.
// Removals are applied before additions and directories before files. On
// traversal error nothing is emitted and the store is left untouched.
func (s *Session) rescan(ctx context.Context) error {
	start := s.now()
	s.rescanAt = start.UnixMilli()

	snap, err := s.opts.Traverse(ctx, s.root, s.constraints)
	if err != nil {
		return err
	}

	dirsAdded, dirsDeleted := difference(s.tiers.directories, snap.Directories)
	filesAdded, filesDeleted := difference(s.tiers.files, snap.Files)

	for _, p := range dirsDeleted {
		s.emit(EventUnlinkDir, p)
		s.tiers.removeDir(p)
	}
	for _, p := range filesDeleted {
		s.emit(EventUnlink, p)
		s.tiers.removeFile(p)
	}
	for _, p := range dirsAdded {
		s.emit(EventAddDir, p)
		s.tiers.addDir(p)
	}
	// The first inventory is not activity, so it stays cold.
	for _, p := range filesAdded {
		s.emit(EventAdd, p)
		s.tiers.addFile(p, s.rescanAt-1, !s.initial)
	}

	s.tiers.reseed()

	took := s.now().Sub(start)
	s.stats.rescanned(s.tiers, took)
	s.logger.Debug("rescan complete",
		zap.Int("directories", len(s.tiers.directories)),
		zap.Int("files", len(s.tiers.files)),
		zap.Int("added", len(dirsAdded)+len(filesAdded)),
		zap.Int("deleted", len(dirsDeleted)+len(filesDeleted)),
		zap.Int("chunk_size", s.tiers.chunkSize),
		zap.Duration("took", took),
	)
	return nil
}
