package app

import (
	"context"
	"testing"

	"dupcat/internal/catalog"
	"dupcat/internal/config"
	"dupcat/internal/dupcat"
)

func TestScanDefaults(t *testing.T) {
	t.Run("requires a root", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())

		if _, err := ScanDefaults(cfg, ""); err == nil {
			t.Error("expected error with no root argument and no configured root")
		}
	})

	t.Run("argument overrides configured root", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		cfg.Root = "/configured"

		opts, err := ScanDefaults(cfg, "/argument")
		if err != nil {
			t.Fatalf("ScanDefaults() error = %v", err)
		}
		if opts.Root != "/argument" {
			t.Errorf("Root = %q, want %q", opts.Root, "/argument")
		}
	})

	t.Run("falls back to configured root and resolves sizes", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		cfg.Root = "/configured"
		cfg.Scan.MinSize = "4k"
		cfg.Scan.MaxSize = "1m"

		opts, err := ScanDefaults(cfg, "")
		if err != nil {
			t.Fatalf("ScanDefaults() error = %v", err)
		}
		if opts.Root != "/configured" {
			t.Errorf("Root = %q, want %q", opts.Root, "/configured")
		}
		if opts.MinSize != 4*1024 || opts.MaxSize != 1024*1024 {
			t.Errorf("size bounds = (%d,%d), want (4096,1048576)", opts.MinSize, opts.MaxSize)
		}
	})

	t.Run("invalid size bounds", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		cfg.Root = "/configured"
		cfg.Scan.MinSize = "12q"

		if _, err := ScanDefaults(cfg, ""); err == nil {
			t.Error("expected error for invalid min_size")
		}
	})
}

// A full rebuild destroys the existing catalog, so an invocation that
// fails validation must be rejected before the catalog is touched.
// This mirrors the init command's flow: options are resolved first,
// the App (Create mode) only afterwards.
func TestInitValidationPrecedesRebuild(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig(t.TempDir())

	path, err := catalog.CatalogPath(cfg.Catalog)
	if err != nil {
		t.Fatalf("CatalogPath() error = %v", err)
	}
	cat, err := catalog.Initialize(path, false)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	rec := &dupcat.FileRecord{
		Path: "/keep", Dev: 1, Inode: 1, Size: 1,
		Digests: dupcat.DigestPair{Fast: "f", Strong: "s"},
	}
	if err := cat.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	cat.Close()

	// No root argument and no configured root: validation fails, and
	// the rebuild must never begin.
	if _, err := ScanDefaults(cfg, ""); err == nil {
		t.Fatal("expected validation error with no root")
	}

	reopened, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("catalog has %d records after rejected init, want 1", n)
	}
}
