package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dupcat/internal/catalog"
	"dupcat/internal/config"
)

func TestInitialize(t *testing.T) {
	t.Run("creates a fresh catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dupcat.db")

		cat, err := catalog.Initialize(path, false)
		if err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		defer cat.Close()

		if err := cat.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() after Initialize returned error: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("catalog file was not created: %v", err)
		}
	})

	t.Run("refuses an existing catalog without force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dupcat.db")
		if err := os.WriteFile(path, []byte("old index"), 0644); err != nil {
			t.Fatalf("seeding existing file: %v", err)
		}

		_, err := catalog.Initialize(path, false)
		if !errors.Is(err, catalog.ErrCatalogExists) {
			t.Fatalf("Initialize() error = %v, want ErrCatalogExists", err)
		}

		// The existing file must be untouched.
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading existing file: %v", err)
		}
		if string(data) != "old index" {
			t.Error("existing catalog was modified by refused Initialize")
		}
	})

	t.Run("force replaces an existing catalog", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dupcat.db")

		first, err := catalog.Initialize(path, false)
		if err != nil {
			t.Fatalf("first Initialize() error = %v", err)
		}
		if err := first.Upsert(context.Background(), record("/x", 1, 1, 1, "f", "s")); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		first.Close()

		second, err := catalog.Initialize(path, true)
		if err != nil {
			t.Fatalf("forced Initialize() error = %v", err)
		}
		defer second.Close()

		n, err := second.Count(context.Background())
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 0 {
			t.Errorf("rebuilt catalog has %d records, want 0", n)
		}
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("memory catalog is always fresh", func(t *testing.T) {
		cat, err := catalog.NewFromConfig(config.CatalogConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewFromConfig() error = %v", err)
		}
		defer cat.Close()

		n, err := cat.Count(context.Background())
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 0 {
			t.Errorf("Count() = %d, want 0", n)
		}
	})

	t.Run("sqlite requires an initialized catalog", func(t *testing.T) {
		_, err := catalog.NewFromConfig(config.CatalogConfig{Type: "sqlite", DataDir: t.TempDir()})
		if err == nil {
			t.Fatal("expected error for missing catalog file")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := catalog.NewFromConfig(config.CatalogConfig{Type: "postgres"})
		if err == nil {
			t.Fatal("expected error for unknown catalog type")
		}
	})

	t.Run("sqlite requires data_dir", func(t *testing.T) {
		_, err := catalog.NewFromConfig(config.CatalogConfig{Type: "sqlite"})
		if err == nil {
			t.Fatal("expected error for missing data_dir")
		}
	})
}
