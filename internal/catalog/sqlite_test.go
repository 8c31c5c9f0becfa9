package catalog_test

import (
	"context"
	"testing"

	"dupcat/internal/dupcat"
	"dupcat/internal/testutil"
)

func record(path string, dev, inode uint64, size int64, fast, strong string) *dupcat.FileRecord {
	return &dupcat.FileRecord{
		Path:    path,
		Dev:     dev,
		Inode:   inode,
		Size:    size,
		MTime:   1700000000,
		Digests: dupcat.DigestPair{Fast: fast, Strong: strong},
	}
}

func TestSQLiteCatalog_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewTestCatalog(t)

	rec := record("/data/a.txt", 1, 100, 6, "fast-a", "strong-a")
	if err := cat.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := cat.FindByPath(ctx, "/data/a.txt")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindByPath() = nil, want record")
	}
	if *got != *rec {
		t.Errorf("FindByPath() = %+v, want %+v", got, rec)
	}

	t.Run("missing path returns nil", func(t *testing.T) {
		got, err := cat.FindByPath(ctx, "/data/missing")
		if err != nil {
			t.Fatalf("FindByPath() error = %v", err)
		}
		if got != nil {
			t.Errorf("FindByPath() = %+v, want nil", got)
		}
	})

	t.Run("upsert replaces in place", func(t *testing.T) {
		changed := record("/data/a.txt", 1, 101, 7, "fast-a2", "strong-a2")
		changed.MTime = 1700000001
		if err := cat.Upsert(ctx, changed); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		n, err := cat.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Fatalf("Count() = %d after re-upsert, want 1", n)
		}

		got, err := cat.FindByPath(ctx, "/data/a.txt")
		if err != nil {
			t.Fatalf("FindByPath() error = %v", err)
		}
		if *got != *changed {
			t.Errorf("FindByPath() = %+v, want %+v", got, changed)
		}
	})
}

func TestSQLiteCatalog_DeleteAndPaths(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewTestCatalog(t)

	for _, p := range []string{"/b", "/a", "/c"} {
		if err := cat.Upsert(ctx, record(p, 1, 1, 1, "f", "s")); err != nil {
			t.Fatalf("Upsert(%s) error = %v", p, err)
		}
	}

	paths, err := cat.AllPaths(ctx)
	if err != nil {
		t.Fatalf("AllPaths() error = %v", err)
	}
	want := []string{"/a", "/b", "/c"}
	if len(paths) != len(want) {
		t.Fatalf("AllPaths() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("AllPaths()[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	if err := cat.DeleteByPath(ctx, "/b"); err != nil {
		t.Fatalf("DeleteByPath() error = %v", err)
	}
	if err := cat.DeleteByPath(ctx, "/not-there"); err != nil {
		t.Errorf("DeleteByPath() for unknown path error = %v, want nil", err)
	}

	n, err := cat.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d after delete, want 2", n)
	}
}

func TestSQLiteCatalog_DuplicateDigests(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewTestCatalog(t)

	seed := []*dupcat.FileRecord{
		record("/data/a", 1, 10, 100, "x", "X"),
		record("/data/b", 1, 11, 100, "x", "X"),
		record("/data/c", 1, 12, 50, "y", "Y"),
		record("/other/d", 1, 13, 100, "x", "X"),
		record("/other/e", 1, 14, 200, "z", "Z"),
	}
	for _, r := range seed {
		if err := cat.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%s) error = %v", r.Path, err)
		}
	}

	t.Run("unfiltered", func(t *testing.T) {
		pairs, err := cat.DuplicateDigests(ctx, dupcat.DuplicateFilter{})
		if err != nil {
			t.Fatalf("DuplicateDigests() error = %v", err)
		}
		if len(pairs) != 1 {
			t.Fatalf("got %d pairs, want 1", len(pairs))
		}
		if pairs[0].Fast != "x" || pairs[0].Strong != "X" {
			t.Errorf("pair = %+v, want {x X}", pairs[0])
		}
	})

	t.Run("path prefix restricts occurrence counting", func(t *testing.T) {
		pairs, err := cat.DuplicateDigests(ctx, dupcat.DuplicateFilter{PathPrefix: "/other"})
		if err != nil {
			t.Fatalf("DuplicateDigests() error = %v", err)
		}
		// Only one /other record carries the x/X pair.
		if len(pairs) != 0 {
			t.Errorf("got %d pairs, want 0", len(pairs))
		}
	})

	t.Run("size bounds", func(t *testing.T) {
		pairs, err := cat.DuplicateDigests(ctx, dupcat.DuplicateFilter{MinSize: 150})
		if err != nil {
			t.Fatalf("DuplicateDigests() error = %v", err)
		}
		if len(pairs) != 0 {
			t.Errorf("got %d pairs above 150 bytes, want 0", len(pairs))
		}

		pairs, err = cat.DuplicateDigests(ctx, dupcat.DuplicateFilter{MinSize: 50, MaxSize: 100})
		if err != nil {
			t.Fatalf("DuplicateDigests() error = %v", err)
		}
		if len(pairs) != 1 {
			t.Errorf("got %d pairs in [50,100], want 1", len(pairs))
		}
	})
}

func TestSQLiteCatalog_FindByDigest(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewTestCatalog(t)

	for _, r := range []*dupcat.FileRecord{
		record("/z", 1, 10, 100, "x", "X"),
		record("/a", 1, 11, 100, "x", "X"),
		record("/m", 1, 12, 100, "y", "Y"),
	} {
		if err := cat.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%s) error = %v", r.Path, err)
		}
	}

	recs, err := cat.FindByDigest(ctx, dupcat.DigestPair{Fast: "x", Strong: "X"})
	if err != nil {
		t.Fatalf("FindByDigest() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Path != "/a" || recs[1].Path != "/z" {
		t.Errorf("records not path ordered: %s, %s", recs[0].Path, recs[1].Path)
	}
}

func TestSQLiteCatalog_UpdateInode(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewTestCatalog(t)

	if err := cat.Upsert(ctx, record("/a", 1, 10, 100, "x", "X")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := cat.UpdateInode(ctx, "/a", 2, 42); err != nil {
		t.Fatalf("UpdateInode() error = %v", err)
	}

	got, err := cat.FindByPath(ctx, "/a")
	if err != nil {
		t.Fatalf("FindByPath() error = %v", err)
	}
	if got.Dev != 2 || got.Inode != 42 {
		t.Errorf("identity = (%d,%d), want (2,42)", got.Dev, got.Inode)
	}

	if err := cat.UpdateInode(ctx, "/missing", 2, 42); err == nil {
		t.Error("UpdateInode() for unknown path expected error")
	}
}
