package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for dupcat.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Root    string        `toml:"root"` // default scan root; overridable per run
	Catalog CatalogConfig `toml:"catalog"`
	Scan    ScanConfig    `toml:"scan"`
	Hashing HashingConfig `toml:"hashing"`
}

// CatalogConfig represents configuration for the catalog store.
// This uses a tagged union pattern - the Type field determines which
// other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ScanConfig holds traversal policy defaults. Flags with the same
// meaning override these per run.
type ScanConfig struct {
	Excludes       []string `toml:"excludes"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	MinSize        string   `toml:"min_size"` // size with optional k/m/g/t suffix
	MaxSize        string   `toml:"max_size"`
	LowerPriority  bool     `toml:"lower_priority"`
}

// HashingConfig controls the digest engine.
type HashingConfig struct {
	Disable    bool   `toml:"disable"`    // store sentinel digests (defeats duplicate detection)
	Sequential bool   `toml:"sequential"` // never hash a file's two digests concurrently
	Threshold  string `toml:"threshold"`  // file size above which digests run concurrently
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
		Scan: ScanConfig{
			LowerPriority: true,
		},
		Hashing: HashingConfig{
			Threshold: "1m",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the
// provided Config. An existing file is never overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
