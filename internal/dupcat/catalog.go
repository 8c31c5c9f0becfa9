package dupcat

import "context"

// DuplicateFilter restricts which records participate in duplicate
// detection. Zero values mean "no restriction".
type DuplicateFilter struct {
	PathPrefix string
	MinSize    int64
	MaxSize    int64
}

// Catalog is the persisted store of file records.
//
// Implementations own record persistence exclusively; callers hold only
// transient views. The engine never issues concurrent writes, so
// implementations may assume a single writer.
type Catalog interface {
	// Upsert inserts the record, replacing any existing record with the
	// same path.
	Upsert(ctx context.Context, rec *FileRecord) error

	// FindByPath returns the record for the given path, or nil if the
	// path is not cataloged.
	FindByPath(ctx context.Context, path string) (*FileRecord, error)

	// DeleteByPath removes the record for the given path. Removing a
	// path that is not cataloged is not an error.
	DeleteByPath(ctx context.Context, path string) error

	// AllPaths returns every cataloged path in lexicographic order.
	AllPaths(ctx context.Context) ([]string, error)

	// DuplicateDigests returns each digest pair held by more than one
	// record, restricted by the filter, ordered by the first path that
	// carries the pair.
	DuplicateDigests(ctx context.Context, filter DuplicateFilter) ([]DigestPair, error)

	// FindByDigest returns all records carrying the given digest pair,
	// ordered by path.
	FindByDigest(ctx context.Context, pair DigestPair) ([]*FileRecord, error)

	// UpdateInode rewrites the physical identity stored for a path.
	// Used after a merge replaces the path with a hardlink.
	UpdateInode(ctx context.Context, path string, dev, inode uint64) error

	// Count returns the number of cataloged records.
	Count(ctx context.Context) (int64, error)

	Close() error
}
