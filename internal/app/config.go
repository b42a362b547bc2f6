package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/goodvibes/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "goodvibes"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# goodvibes configuration
# Run: goodvibes --help

# Where retry state lives. Also GOODVIBES_STATE_DIR or --state-dir.
# state_dir: ~/.config/goodvibes/state

# file (default), sqlite or memory. Also GOODVIBES_BACKEND or --backend.
# backend: file

# SQLite database for the sqlite backend. Also GOODVIBES_DB_PATH.
# db_path: ~/.config/goodvibes/goodvibes.db

# Optional YAML recovery-pattern catalog. Also GOODVIBES_CATALOG or --catalog.
# catalog_path: ~/.config/goodvibes/patterns.yaml

# Session start drops tracked errors older than this.
# prune_max_age_hours: 24

# Per-phase retry budget overrides (1..20).
# retry_limits:
#   typescript_error: 4
#   file_not_found: 1
`
