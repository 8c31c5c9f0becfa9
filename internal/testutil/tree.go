package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// WriteFile creates a file under dir with the given relative path and
// content, creating parent directories as needed. Returns the absolute
// path.
func WriteFile(t *testing.T, dir, rel string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent directories for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return path
}

// Hardlink creates newpath as a hardlink to oldpath.
func Hardlink(t *testing.T, oldpath, newpath string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(newpath), 0755); err != nil {
		t.Fatalf("creating parent directories for %s: %v", newpath, err)
	}
	if err := os.Link(oldpath, newpath); err != nil {
		t.Fatalf("hardlinking %s -> %s: %v", newpath, oldpath, err)
	}
}

// Symlink creates newpath as a symbolic link to oldpath.
func Symlink(t *testing.T, oldpath, newpath string) {
	t.Helper()

	if err := os.Symlink(oldpath, newpath); err != nil {
		t.Fatalf("symlinking %s -> %s: %v", newpath, oldpath, err)
	}
}

// Identity returns the (device, inode) physical identity of path.
func Identity(t *testing.T, path string) (dev, inode uint64) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		t.Fatalf("stat %s: expected *syscall.Stat_t, got %T", path, info.Sys())
	}
	return uint64(st.Dev), uint64(st.Ino)
}

// Stat returns the FileInfo for path, failing the test on error.
func Stat(t *testing.T, path string) fs.FileInfo {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info
}

// Touch sets the file's mtime (and atime) to the given time.
func Touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting mtime of %s: %v", path, err)
	}
}
