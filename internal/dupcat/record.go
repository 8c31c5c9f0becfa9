package dupcat

// DigestPair is the (fast, strong) content-hash tuple identifying a
// file's content. Both values are hex encoded. A pair with both values
// empty is the sentinel stored when hashing was explicitly disabled.
type DigestPair struct {
	Fast   string // MD5
	Strong string // SHA-256
}

// IsSentinel reports whether this pair was stored with hashing disabled.
func (p DigestPair) IsSentinel() bool {
	return p.Fast == "" && p.Strong == ""
}

// FileRecord is one catalog entry, keyed by absolute path.
// Dev and Inode together are the file's physical identity: two records
// with matching Dev and Inode refer to the same underlying file no
// matter how many paths point at it.
type FileRecord struct {
	Path    string
	Dev     uint64
	Inode   uint64
	Size    int64
	MTime   int64 // epoch seconds at index time
	Digests DigestPair
}

// SamePhysicalFile reports whether two records refer to the same
// underlying file (hardlinks of each other).
func (r *FileRecord) SamePhysicalFile(other *FileRecord) bool {
	return r.Dev == other.Dev && r.Inode == other.Inode
}
