package poll

import (
	"errors"
	"io/fs"

	"go.uber.org/zap"
)

// checkFiles stats each path and reports changes and removals. Only a
// not-found result counts as a removal; any other failure leaves the path
// untouched until its next turn.
//
// The recorded mtime is looked up by presence, so a file whose last observed
// mtime is exactly zero still reports later changes.
func (s *Session) checkFiles(paths []string) {
	for _, p := range paths {
		if s.aborted.Load() {
			return
		}

		mtime, err := s.opts.Stat(p)
		s.stats.statChecks.Add(1)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				s.emit(EventUnlink, p)
				s.tiers.removeFile(p)
				continue
			}
			s.stats.statFailures.Add(1)
			s.logger.Debug("stat failed, retrying on next turn", zap.String("path", p), zap.Error(err))
			continue
		}

		recorded, ok := s.tiers.mtime(p)
		if !ok || mtime <= recorded {
			continue
		}
		s.emit(EventChange, p)
		s.tiers.touch(p, mtime)
	}
}
