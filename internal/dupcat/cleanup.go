package dupcat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Cleanup removes catalog records whose path no longer exists on disk.
// It never touches files, only the catalog. Returns the number of records
// removed.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	paths, err := s.catalog.AllPaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing catalog paths: %w", err)
	}

	removed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		_, err := os.Lstat(path)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			// Unreachable but possibly extant (e.g. permission denied on
			// a parent). Keep the record.
			s.logger.Warn("cannot stat cataloged path, keeping record", "path", path, "error", err)
			continue
		}

		if err := s.catalog.DeleteByPath(ctx, path); err != nil {
			return removed, fmt.Errorf("removing record for %s: %w", path, err)
		}
		s.logger.Debug("stale record removed", "path", path)
		removed++
	}

	s.logger.Info("cleanup finished", "removed", removed)
	return removed, nil
}
