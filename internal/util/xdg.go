package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "worktimer"

// GetXDGDataDir returns the XDG data directory for worktimer.
// It respects XDG_DATA_HOME if set, otherwise falls back to ~/.local/share/worktimer
func GetXDGDataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", appName), nil
}

// GetXDGConfigDir returns the XDG config directory for worktimer.
// It respects XDG_CONFIG_HOME if set, otherwise falls back to ~/.config/worktimer
func GetXDGConfigDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", appName), nil
}

// DefaultConfigPath is config.yaml under the config directory.
func DefaultConfigPath() (string, error) {
	dir, err := GetXDGConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDatabasePath is worktimer.db under the data directory. The directory
// is created if missing.
func DefaultDatabasePath() (string, error) {
	dir, err := GetXDGDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "worktimer.db"), nil
}
