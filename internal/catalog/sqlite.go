// Package catalog persists file records in a SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dupcat/internal/catalog/migrations"
	"dupcat/internal/dupcat"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements the dupcat.Catalog interface using SQLite.
// All statements are parameterized; no SQL is ever assembled from
// record values.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory catalog.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	// The engine is single-writer by construction, but a second dupcat
	// process on the same catalog should get a clean "busy" error
	// instead of hanging forever.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring catalog: %w", err)
	}

	return db, nil
}

// Open opens an existing catalog at path. It does not verify the
// schema; call CheckMigrations for that.
func Open(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteCatalog{db: db, path: path}, nil
}

// NewFromDB wraps an existing connection. The caller keeps ownership of
// the connection's configuration.
func NewFromDB(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// Path returns the catalog file path (empty for wrapped connections,
// ":memory:" for in-memory catalogs).
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// CheckMigrations verifies the catalog schema is up to date.
func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

func (s *SQLiteCatalog) Upsert(ctx context.Context, rec *dupcat.FileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hashes (filename, inode, size, mtime, dev, md5, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (filename) DO UPDATE SET
			inode = excluded.inode,
			size = excluded.size,
			mtime = excluded.mtime,
			dev = excluded.dev,
			md5 = excluded.md5,
			sha256 = excluded.sha256`,
		rec.Path, int64(rec.Inode), rec.Size, rec.MTime, int64(rec.Dev),
		rec.Digests.Fast, rec.Digests.Strong,
	)
	if err != nil {
		return fmt.Errorf("upserting record for %s: %w", rec.Path, err)
	}
	return nil
}

func (s *SQLiteCatalog) FindByPath(ctx context.Context, path string) (*dupcat.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT filename, inode, size, mtime, dev, md5, sha256
		FROM hashes WHERE filename = ?`, path)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not cataloged
		}
		return nil, fmt.Errorf("finding record by path: %w", err)
	}
	return rec, nil
}

func (s *SQLiteCatalog) DeleteByPath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hashes WHERE filename = ?`, path); err != nil {
		return fmt.Errorf("deleting record for %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteCatalog) AllPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM hashes ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("listing catalog paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing catalog paths: %w", err)
	}
	return paths, nil
}

func (s *SQLiteCatalog) DuplicateDigests(ctx context.Context, filter dupcat.DuplicateFilter) ([]dupcat.DigestPair, error) {
	query := `SELECT md5, sha256 FROM hashes`
	var conds []string
	var args []any

	if filter.PathPrefix != "" {
		conds = append(conds, `filename LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(filter.PathPrefix)+"%")
	}
	if filter.MinSize > 0 {
		conds = append(conds, `size >= ?`)
		args = append(args, filter.MinSize)
	}
	if filter.MaxSize > 0 {
		conds = append(conds, `size <= ?`)
		args = append(args, filter.MaxSize)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` GROUP BY md5, sha256 HAVING COUNT(*) > 1 ORDER BY MIN(filename)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate digests: %w", err)
	}
	defer rows.Close()

	var pairs []dupcat.DigestPair
	for rows.Next() {
		var p dupcat.DigestPair
		if err := rows.Scan(&p.Fast, &p.Strong); err != nil {
			return nil, fmt.Errorf("scanning digest pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying duplicate digests: %w", err)
	}
	return pairs, nil
}

func (s *SQLiteCatalog) FindByDigest(ctx context.Context, pair dupcat.DigestPair) ([]*dupcat.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, inode, size, mtime, dev, md5, sha256
		FROM hashes WHERE md5 = ? AND sha256 = ?
		ORDER BY filename`, pair.Fast, pair.Strong)
	if err != nil {
		return nil, fmt.Errorf("finding records by digest: %w", err)
	}
	defer rows.Close()

	var recs []*dupcat.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding records by digest: %w", err)
	}
	return recs, nil
}

func (s *SQLiteCatalog) UpdateInode(ctx context.Context, path string, dev, inode uint64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hashes SET dev = ?, inode = ? WHERE filename = ?`,
		int64(dev), int64(inode), path)
	if err != nil {
		return fmt.Errorf("updating inode for %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating inode for %s: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("no record for %s", path)
	}
	return nil
}

func (s *SQLiteCatalog) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the catalog connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*dupcat.FileRecord, error) {
	var rec dupcat.FileRecord
	var inode, dev int64
	err := sc.Scan(&rec.Path, &inode, &rec.Size, &rec.MTime, &dev,
		&rec.Digests.Fast, &rec.Digests.Strong)
	if err != nil {
		return nil, err
	}
	rec.Inode = uint64(inode)
	rec.Dev = uint64(dev)
	return &rec, nil
}

// escapeLike escapes LIKE metacharacters so a path prefix is matched
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Compile-time check that SQLiteCatalog implements dupcat.Catalog
var _ dupcat.Catalog = (*SQLiteCatalog)(nil)
