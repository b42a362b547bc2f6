package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/goodvibes/internal/models"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	StateDir         string         `yaml:"state_dir"`
	Backend          string         `yaml:"backend"`
	DBPath           string         `yaml:"db_path"`
	CatalogPath      string         `yaml:"catalog_path"`
	PruneMaxAgeHours int            `yaml:"prune_max_age_hours"`
	RetryLimits      map[string]int `yaml:"retry_limits"`
}

const (
	defaultPruneMaxAgeHours = 24
	maxPruneMaxAgeHours     = 24 * 30

	minRetryLimit = 1
	maxRetryLimit = 20
)

// EffectivePruneMaxAgeHours returns prune_max_age_hours, defaulted and clamped.
func EffectivePruneMaxAgeHours() int {
	s, err := LoadSettings()
	if err != nil || s.PruneMaxAgeHours <= 0 {
		return defaultPruneMaxAgeHours
	}
	return min(s.PruneMaxAgeHours, maxPruneMaxAgeHours)
}

// EffectiveRetryLimits returns the configured per-category overrides.
// Unknown category names are ignored and values are clamped to 1..20.
// Categories without an override are absent from the result.
func EffectiveRetryLimits() map[models.ErrorCategory]int {
	out := map[models.ErrorCategory]int{}
	s, err := LoadSettings()
	if err != nil {
		return out
	}
	for name, n := range s.RetryLimits {
		cat := models.ErrorCategory(name)
		if !cat.Valid() {
			continue
		}
		out[cat] = max(minRetryLimit, min(n, maxRetryLimit))
	}
	return out
}

// Overrides carries CLI flag values; empty fields defer to env and config.
type Overrides struct {
	StateDir    string
	Backend     string
	DBPath      string
	CatalogPath string
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// overridesMu and overrides implement a mutex-protected process-wide override for CLI flags.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	overridesMu sync.RWMutex
	overrides   Overrides
)

// SetOverrides sets the process-wide flag overrides.
func SetOverrides(o Overrides) {
	overridesMu.Lock()
	overrides = o
	overridesMu.Unlock()
}

func getOverrides() Overrides {
	overridesMu.RLock()
	v := overrides
	overridesMu.RUnlock()
	return v
}

// configPaths lists config files in lookup order.
func configPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "goodvibes", "config.yaml"),
		"config.yaml",
	}, nil
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/goodvibes/config.yaml
// 2) /etc/goodvibes/config.yaml
// 3) ./config.yaml (lowest priority)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := configPaths()
		if err != nil {
			settingsErr = err
			return
		}
		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if !errors.Is(err, os.ErrNotExist) {
				settingsErr = err
				return
			}
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: fixed config lookup paths
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
