package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DUPCAT_CONFIG_PATH: config file location (default: ~/.config/dupcat.toml)
//   - DUPCAT_HOME: base directory for dupcat data (default: ~/.local/share/dupcat)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking DUPCAT_CONFIG_PATH env var
// first, then falling back to the default ~/.config/dupcat.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DUPCAT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dupcat.toml"), nil
}

// getBaseDir returns the base directory for dupcat data, checking DUPCAT_HOME
// env var first, then falling back to the XDG default ~/.local/share/dupcat.
func getBaseDir() (string, error) {
	if path := os.Getenv("DUPCAT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dupcat"), nil
}
