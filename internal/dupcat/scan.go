package dupcat

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScanOptions is the immutable configuration for a single scan run.
type ScanOptions struct {
	Root           string
	Excludes       []string // shell-glob patterns, tested against directory paths
	FollowSymlinks bool
	MinSize        int64
	MaxSize        int64 // 0 = unbounded
	NoHash         bool  // store sentinel digests instead of hashing
	Incremental    bool  // skip re-hashing files whose stored mtime is current
	LowerPriority  bool  // best-effort niceness before walking
}

// ScanResult accumulates the outcome of a scan run.
type ScanResult struct {
	Added   int // records inserted for previously uncataloged paths
	Updated int // records replaced for changed files
	Skipped int // unchanged, out-of-bounds, empty or non-regular entries
	Errors  int // per-file failures (unreadable, hash errors)
	Hashed  int // digest-pair computations performed
}

// Scan walks the tree under opts.Root depth-first in sorted order and
// brings the catalog up to date with what it finds.
//
// Per-file read and hash failures are logged, counted and skipped; a
// catalog write failure aborts the scan, since catalog integrity cannot
// be assumed past that point.
func (s *Service) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	if opts.LowerPriority {
		if err := lowerPriority(); err != nil {
			s.logger.Debug("could not lower scan priority", "error", err)
		}
	}

	// Following symlinks can revisit a directory through an alias, or
	// loop forever through a link to an ancestor. Tracking visited
	// directory identities makes the walk terminate either way.
	var visited map[[2]uint64]bool
	if opts.FollowSymlinks {
		visited = make(map[[2]uint64]bool)
	}

	started := s.clock.Now()
	res := &ScanResult{}
	if err := s.walkDir(ctx, root, opts, visited, res); err != nil {
		return res, err
	}

	s.logger.Info("scan finished",
		"root", root,
		"added", res.Added,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"elapsed", s.clock.Now().Sub(started).String(),
	)
	return res, nil
}

// walkDir processes one directory. Entries come back from os.ReadDir
// already sorted by name, which keeps runs reproducible.
func (s *Service) walkDir(ctx context.Context, dir string, opts ScanOptions, visited map[[2]uint64]bool, res *ScanResult) error {
	if pat, ok := excluded(dir, opts.Excludes); ok {
		s.logger.Debug("directory excluded", "dir", dir, "pattern", pat)
		return nil
	}

	if visited != nil {
		if info, err := os.Stat(dir); err == nil {
			if dev, inode, err := statIdentity(info); err == nil {
				key := [2]uint64{dev, inode}
				if visited[key] {
					s.logger.Debug("directory already visited", "dir", dir)
					return nil
				}
				visited[key] = true
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// A single unreadable directory does not abort the scan.
		s.logger.Warn("cannot read directory", "dir", dir, "error", err)
		res.Errors++
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(dir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			if !opts.FollowSymlinks {
				s.logger.Debug("symlink skipped", "path", full)
				res.Skipped++
				continue
			}
			// Follow the link; the target decides how to proceed.
			target, err := os.Stat(full)
			if err != nil {
				s.logger.Warn("cannot resolve symlink", "path", full, "error", err)
				res.Errors++
				continue
			}
			if target.IsDir() {
				if err := s.walkDir(ctx, full, opts, visited, res); err != nil {
					return err
				}
				continue
			}
			if target.Mode().IsRegular() {
				if err := s.processFile(ctx, full, target, opts, res); err != nil {
					return err
				}
				continue
			}
			res.Skipped++
			continue
		}

		if entry.IsDir() {
			if err := s.walkDir(ctx, full, opts, visited, res); err != nil {
				return err
			}
			continue
		}

		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				s.logger.Warn("cannot stat file", "path", full, "error", err)
				res.Errors++
				continue
			}
			if err := s.processFile(ctx, full, info, opts, res); err != nil {
				return err
			}
			continue
		}

		// Devices, pipes, sockets and the like are never cataloged.
		s.logger.Debug("unsupported entry type skipped", "path", full, "mode", entry.Type().String())
		res.Skipped++
	}

	return nil
}

// processFile applies the size policy and (re)indexes a single regular
// file. The returned error is non-nil only for catalog write failures.
func (s *Service) processFile(ctx context.Context, path string, info fs.FileInfo, opts ScanOptions, res *ScanResult) error {
	size := info.Size()
	if size == 0 {
		res.Skipped++
		return nil
	}
	if size < opts.MinSize {
		s.logger.Debug("file below minimum size", "path", path, "size", size)
		res.Skipped++
		return nil
	}
	if opts.MaxSize > 0 && size > opts.MaxSize {
		s.logger.Info("file above maximum size, skipped", "path", path, "size", size)
		res.Skipped++
		return nil
	}

	dev, inode, err := statIdentity(info)
	if err != nil {
		s.logger.Warn("cannot extract physical identity", "path", path, "error", err)
		res.Errors++
		return nil
	}
	mtime := info.ModTime().Unix()

	var existing *FileRecord
	if opts.Incremental {
		existing, err = s.catalog.FindByPath(ctx, path)
		if err != nil {
			return fmt.Errorf("looking up %s: %w", path, err)
		}
		if existing != nil && existing.Dev == dev && existing.Inode == inode && existing.MTime == mtime {
			s.logger.Debug("file unchanged", "path", path)
			res.Skipped++
			return nil
		}
	}

	var digests DigestPair
	if !opts.NoHash {
		digests, err = s.hasher.PairFor(path, size)
		if err != nil {
			s.logger.Warn("cannot hash file", "path", path, "error", err)
			res.Errors++
			return nil
		}
		res.Hashed++
	}

	rec := &FileRecord{
		Path:    path,
		Dev:     dev,
		Inode:   inode,
		Size:    size,
		MTime:   mtime,
		Digests: digests,
	}
	if err := s.catalog.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("storing record for %s: %w", path, err)
	}

	if existing != nil {
		s.logger.Debug("file re-indexed", "path", path)
		res.Updated++
	} else {
		s.logger.Debug("file indexed", "path", path)
		res.Added++
	}
	return nil
}

// excluded reports whether any pattern matches the directory path.
// Patterns containing a path separator match against the full path;
// bare patterns match against the directory's basename.
func excluded(dir string, patterns []string) (string, bool) {
	for _, pat := range patterns {
		var matched bool
		var err error
		if strings.ContainsRune(pat, filepath.Separator) {
			matched, err = filepath.Match(pat, dir)
		} else {
			matched, err = filepath.Match(pat, filepath.Base(dir))
		}
		if err != nil {
			// A bad pattern is ignored rather than aborting the walk.
			continue
		}
		if matched {
			return pat, true
		}
	}
	return "", false
}
