package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolved is a setting value with the source that decided it.
type Resolved struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

type resolver struct {
	name     string
	flag     func(Overrides) string
	env      string
	config   func(Settings) string
	fallback func(configDir string) string
}

//nolint:gochecknoglobals // static lookup table
var (
	stateDirResolver = resolver{
		name:     "state_dir",
		flag:     func(o Overrides) string { return o.StateDir },
		env:      "GOODVIBES_STATE_DIR",
		config:   func(s Settings) string { return s.StateDir },
		fallback: func(dir string) string { return filepath.Join(dir, "state") },
	}
	backendResolver = resolver{
		name:     "backend",
		flag:     func(o Overrides) string { return o.Backend },
		env:      "GOODVIBES_BACKEND",
		config:   func(s Settings) string { return s.Backend },
		fallback: func(string) string { return "file" },
	}
	dbPathResolver = resolver{
		name:     "db_path",
		flag:     func(o Overrides) string { return o.DBPath },
		env:      "GOODVIBES_DB_PATH",
		config:   func(s Settings) string { return s.DBPath },
		fallback: func(dir string) string { return filepath.Join(dir, "goodvibes.db") },
	}
	catalogPathResolver = resolver{
		name:     "catalog_path",
		flag:     func(o Overrides) string { return o.CatalogPath },
		env:      "GOODVIBES_CATALOG",
		config:   func(s Settings) string { return s.CatalogPath },
		fallback: func(string) string { return "" },
	}
)

// resolve applies the precedence: CLI flag, environment, config.yaml, default.
func (r resolver) resolve() (Resolved, error) {
	if v := r.flag(getOverrides()); v != "" {
		return Resolved{Value: v, Source: "cli"}, nil
	}
	if v := os.Getenv(r.env); v != "" {
		return Resolved{Value: v, Source: fmt.Sprintf("env(%s)", r.env)}, nil
	}

	cfg, err := LoadSettings()
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to load config: %w", err)
	}
	if v := r.config(cfg); v != "" {
		return Resolved{Value: v, Source: "config"}, nil
	}

	configDir, err := ConfigDir()
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to determine config directory: %w", err)
	}
	return Resolved{Value: r.fallback(configDir), Source: "default"}, nil
}

// GetStateDir resolves the directory holding file-backend retry state.
func GetStateDir() (string, error) {
	r, err := stateDirResolver.resolve()
	return r.Value, err
}

// GetBackend resolves the store backend name.
func GetBackend() (string, error) {
	r, err := backendResolver.resolve()
	return r.Value, err
}

// GetDBPath resolves the SQLite path and ensures its parent directory exists.
func GetDBPath() (string, error) {
	r, err := dbPathResolver.resolve()
	if err != nil {
		return "", err
	}
	return EnsureDBDir(r.Value)
}

// GetCatalogPath resolves the optional pattern catalog file. Empty means the
// built-in library.
func GetCatalogPath() (string, error) {
	r, err := catalogPathResolver.resolve()
	return r.Value, err
}

// ResolveAll reports every path-like setting with its source.
// This is for debugging/reporting; normal code should use the Get* helpers.
func ResolveAll() (map[string]Resolved, error) {
	out := make(map[string]Resolved, 4)
	for _, r := range []resolver{stateDirResolver, backendResolver, dbPathResolver, catalogPathResolver} {
		v, err := r.resolve()
		if err != nil {
			return nil, err
		}
		out[r.name] = v
	}
	return out, nil
}

// EnsureDBDir creates the parent directory of dbPath.
func EnsureDBDir(dbPath string) (string, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}
