// Package patterns holds the recovery catalog: an ordered library of regex
// based recovery patterns, the ErrorCategory to pattern-category mapping, and
// the research hints unlocked by escalation phase.
package patterns

import (
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/dotcommander/goodvibes/internal/models"
)

type compiledPattern struct {
	def models.RecoveryPattern
	res []*regexp.Regexp
}

// Catalog is an immutable, compiled recovery catalog. It is safe for
// concurrent use; nothing mutates it after construction.
type Catalog struct {
	patterns    []compiledPattern
	categoryMap map[models.ErrorCategory][]string
	hintKeys    map[models.ErrorCategory]string
	hints       map[string]models.Hints
}

// Tables groups the lookup tables a catalog is built from alongside its patterns.
type Tables struct {
	CategoryMap map[models.ErrorCategory][]string
	HintKeys    map[models.ErrorCategory]string
	Hints       map[string]models.Hints
}

// DefaultTables returns the built-in lookup tables.
func DefaultTables() Tables {
	return Tables{
		CategoryMap: DefaultCategoryMap(),
		HintKeys:    DefaultHintKeys(),
		Hints:       DefaultHints(),
	}
}

// NewCatalog compiles defs in order. Every regex must compile; the first
// failure is returned with the owning pattern category.
func NewCatalog(defs []models.RecoveryPattern, tables Tables) (*Catalog, error) {
	c := &Catalog{
		patterns:    make([]compiledPattern, 0, len(defs)),
		categoryMap: make(map[models.ErrorCategory][]string, len(tables.CategoryMap)),
		hintKeys:    make(map[models.ErrorCategory]string, len(tables.HintKeys)),
		hints:       make(map[string]models.Hints, len(tables.Hints)),
	}

	for i, def := range defs {
		cp := compiledPattern{def: clonePattern(def), res: make([]*regexp.Regexp, 0, len(def.Patterns))}
		for _, src := range def.Patterns {
			re, err := regexp.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("pattern %d (%s): compile %q: %w", i, def.Category, src, err)
			}
			cp.res = append(cp.res, re)
		}
		c.patterns = append(c.patterns, cp)
	}

	for k, v := range tables.CategoryMap {
		c.categoryMap[k] = slices.Clone(v)
	}
	for k, v := range tables.HintKeys {
		c.hintKeys[k] = v
	}
	for k, v := range tables.Hints {
		c.hints[k] = models.Hints{Official: slices.Clone(v.Official), Community: slices.Clone(v.Community)}
	}
	return c, nil
}

//nolint:gochecknoglobals // sync.Once singleton for the built-in catalog
var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog, compiled once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(DefaultPatterns(), DefaultTables())
		if err != nil {
			panic(fmt.Sprintf("patterns: built-in catalog does not compile: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Len returns the number of patterns in the catalog.
func (c *Catalog) Len() int { return len(c.patterns) }

// Patterns returns copies of the catalog entries in definition order.
func (c *Catalog) Patterns() []models.RecoveryPattern {
	out := make([]models.RecoveryPattern, 0, len(c.patterns))
	for _, p := range c.patterns {
		out = append(out, clonePattern(p.def))
	}
	return out
}

// PatternCategories returns the pattern categories searched first for category.
func (c *Catalog) PatternCategories(category models.ErrorCategory) []string {
	return slices.Clone(c.categoryMap[category])
}

func (p compiledPattern) matches(message string) bool {
	for _, re := range p.res {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

func clonePattern(p models.RecoveryPattern) models.RecoveryPattern {
	p.Patterns = slices.Clone(p.Patterns)
	return p
}
