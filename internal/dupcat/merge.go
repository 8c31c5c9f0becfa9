package dupcat

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// MergeResult accumulates the outcome of a hardlink merge run.
type MergeResult struct {
	Linked    int   // paths replaced by hardlinks to their representative
	Skipped   int   // pre-existing targets left untouched (no override)
	Failed    int   // removal or link failures
	Reclaimed int64 // bytes freed by fully linked clusters
	Partial   bool  // cancelled between groups
}

// MergeDuplicates replaces duplicate paths with hardlinks to each
// group's representative and updates the catalog's stored inode for
// every replaced path.
//
// Without force, a path whose filesystem entry still exists is left
// untouched. A removal or link failure for one path is logged and
// skipped; it never aborts the remaining groups.
func (s *Service) MergeDuplicates(ctx context.Context, opts ResolveOptions, force bool) (*MergeResult, error) {
	report, err := s.FindDuplicateGroups(ctx, opts)
	if err != nil {
		return nil, err
	}

	res := &MergeResult{}
	for _, group := range report.Groups {
		if ctx.Err() != nil {
			res.Partial = true
			break
		}

		rep := group.Representative()
		repDev := group.Clusters[0].Dev
		repInode := group.Clusters[0].Inode

		for _, cluster := range group.Clusters[1:] {
			linked := 0
			for _, path := range cluster.Paths {
				ok, err := s.linkOne(ctx, rep, path, force)
				if err != nil {
					s.logger.Warn("merge failed for path", "path", path, "error", err)
					res.Failed++
					continue
				}
				if !ok {
					s.logger.Info("target exists, not overwriting", "path", path)
					res.Skipped++
					continue
				}
				if err := s.catalog.UpdateInode(ctx, path, repDev, repInode); err != nil {
					// The link is in place; only the catalog is stale.
					s.logger.Error("catalog inode update failed", "path", path, "error", err)
					res.Failed++
					continue
				}
				s.logger.Debug("path linked to representative", "path", path, "representative", rep)
				res.Linked++
				linked++
			}
			if linked == len(cluster.Paths) {
				// Every path of this cluster now points at the
				// representative's inode; its bytes are freed.
				res.Reclaimed += cluster.Size
			}
		}
	}

	s.logger.Info("merge finished",
		"linked", res.Linked,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"reclaimed", res.Reclaimed,
	)
	return res, nil
}

// linkOne replaces path with a hardlink to rep. It returns false with a
// nil error when the target exists and force is not set.
func (s *Service) linkOne(ctx context.Context, rep, path string, force bool) (bool, error) {
	if _, err := os.Lstat(path); err == nil {
		if !force {
			return false, nil
		}
		if err := os.Remove(path); err != nil {
			return false, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := os.Link(rep, path); err != nil {
		return false, err
	}
	return true, nil
}
