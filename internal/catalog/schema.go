package catalog

// Schema is the current catalog schema, kept in sync with the
// migrations under migrations/files. Tests apply it directly to
// in-memory databases instead of running the migration machinery.
const Schema = `
CREATE TABLE hashes (
    filename VARCHAR(500) NOT NULL UNIQUE,
    inode    INTEGER NOT NULL,
    size     INTEGER NOT NULL,
    mtime    INTEGER NOT NULL,
    dev      INTEGER NOT NULL,
    md5      VARCHAR(32) NOT NULL,
    sha256   VARCHAR(64) NOT NULL
);
CREATE INDEX idx_hashes_digests ON hashes (md5, sha256);
CREATE INDEX idx_hashes_mtime ON hashes (mtime);
`
