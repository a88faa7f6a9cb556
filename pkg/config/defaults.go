package config

import (
	"os"
	"path/filepath"
)

// defaultDBPath returns the default journal file path.
//
// Returns: ~/.config/firewatch/journal.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./journal.db"
	}

	return filepath.Join(homeDir, ".config", "firewatch", "journal.db")
}

// DefaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/firewatch/config.yaml.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./firewatch.yaml"
	}

	return filepath.Join(homeDir, ".config", "firewatch", "config.yaml")
}

// SearchPaths returns the locations checked for a configuration file when
// none is given explicitly, in order.
func SearchPaths() []string {
	return []string{
		"./firewatch.yaml",
		DefaultConfigPath(),
		"/etc/firewatch/config.yaml",
	}
}
