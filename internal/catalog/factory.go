package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dupcat/internal/catalog/migrations"
	"dupcat/internal/config"
)

// ErrCatalogExists is returned by Initialize when the catalog file is
// already present and force was not given. It protects an existing
// index from silent destruction.
var ErrCatalogExists = errors.New("catalog already exists")

// CatalogPath returns the catalog file location for the given config.
func CatalogPath(cfg config.CatalogConfig) (string, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("data_dir required for sqlite catalog")
		}
		return filepath.Join(cfg.DataDir, "dupcat.db"), nil
	case "memory":
		return ":memory:", nil
	default:
		return "", fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}

// NewFromConfig opens the catalog described by the config. For sqlite
// catalogs the file must already exist (created by Initialize).
func NewFromConfig(cfg config.CatalogConfig) (*SQLiteCatalog, error) {
	path, err := CatalogPath(cfg)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// In-memory catalogs are always fresh; apply the schema.
		return Initialize(path, false)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog not found at %s (run init first): %w", path, err)
	}
	return Open(path)
}

// Initialize creates a fresh catalog at path with the full schema
// applied. An existing catalog file is refused unless force is set, in
// which case it is removed first so a full rebuild starts empty.
func Initialize(path string, force bool) (*SQLiteCatalog, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err == nil {
			if !force {
				return nil, fmt.Errorf("%w at %s (use --force to overwrite)", ErrCatalogExists, path)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("removing existing catalog: %w", err)
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	cat, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(cat.db); err != nil {
		cat.Close()
		return nil, fmt.Errorf("applying catalog schema: %w", err)
	}
	return cat, nil
}
