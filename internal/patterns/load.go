package patterns

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/goodvibes/internal/models"
)

// File is the YAML layout of a catalog file. Sections left out of the file
// keep their built-in values, so a file may override only the patterns or
// only the hints.
//
//	patterns:
//	  - category: flaky_network
//	    description: CI network flake
//	    patterns: ['(?i)ECONNRESET']
//	    suggested_fix: Re-run the job once before investigating.
//	    severity: low
//	category_map:
//	  api_error: [flaky_network]
type File struct {
	Patterns    []models.RecoveryPattern `yaml:"patterns" validate:"omitempty,dive"`
	CategoryMap map[string][]string      `yaml:"category_map"`
	HintKeys    map[string]string        `yaml:"hint_keys"`
	Hints       map[string]hintsYAML     `yaml:"hints"`
}

type hintsYAML struct {
	Official  []string `yaml:"official"`
	Community []string `yaml:"community"`
}

//nolint:gochecknoglobals // validator caches struct metadata; one instance per process
var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadCatalogFile reads a YAML catalog from path and compiles it.
func LoadCatalogFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes, validates and compiles a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	defs := DefaultPatterns()
	if len(f.Patterns) > 0 {
		defs = f.Patterns
	}

	tables := DefaultTables()
	if f.CategoryMap != nil {
		tables.CategoryMap = make(map[models.ErrorCategory][]string, len(f.CategoryMap))
		for k, v := range f.CategoryMap {
			c := models.ErrorCategory(k)
			if !c.Valid() {
				return nil, fmt.Errorf("invalid catalog: unknown error category %q in category_map", k)
			}
			tables.CategoryMap[c] = v
		}
	}
	if f.HintKeys != nil {
		tables.HintKeys = make(map[models.ErrorCategory]string, len(f.HintKeys))
		for k, v := range f.HintKeys {
			c := models.ErrorCategory(k)
			if !c.Valid() {
				return nil, fmt.Errorf("invalid catalog: unknown error category %q in hint_keys", k)
			}
			tables.HintKeys[c] = v
		}
	}
	if f.Hints != nil {
		tables.Hints = make(map[string]models.Hints, len(f.Hints))
		for k, v := range f.Hints {
			tables.Hints[k] = models.Hints{Official: v.Official, Community: v.Community}
		}
	}

	return NewCatalog(defs, tables)
}
