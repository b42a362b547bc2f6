package patterns

import (
	"slices"

	"github.com/dotcommander/goodvibes/internal/models"
)

const (
	// GenericFix is returned when no pattern matches.
	GenericFix = "Review the full error message and stack trace, check the relevant logs, and isolate the problem with a minimal reproduction before changing code."

	// DifferentApproachNote is appended once earlier strategies have failed
	// past the first phase.
	DifferentApproachNote = "\n\nPrevious fix attempts did not resolve this error. Try a different approach, or consult the documentation before retrying."
)

// FindMatchingPattern returns the first pattern matching message, searching
// the pattern categories mapped to category first and the whole library
// second. Both scans follow definition order.
func (c *Catalog) FindMatchingPattern(category models.ErrorCategory, message string) (models.RecoveryPattern, bool) {
	allowed := c.categoryMap[category]
	if len(allowed) > 0 {
		for _, p := range c.patterns {
			if !slices.Contains(allowed, p.def.Category) {
				continue
			}
			if p.matches(message) {
				return clonePattern(p.def), true
			}
		}
	}

	for _, p := range c.patterns {
		if p.matches(message) {
			return clonePattern(p.def), true
		}
	}
	return models.RecoveryPattern{}, false
}

// FindAllMatchingPatterns returns every pattern with at least one matching
// regex, once each, in library order.
func (c *Catalog) FindAllMatchingPatterns(message string) []models.RecoveryPattern {
	var out []models.RecoveryPattern
	for _, p := range c.patterns {
		if p.matches(message) {
			out = append(out, clonePattern(p.def))
		}
	}
	return out
}

// HighestSeverity folds the severities of patterns; empty input is low.
func HighestSeverity(patterns []models.RecoveryPattern) models.Severity {
	highest := models.SeverityLow
	for _, p := range patterns {
		if p.Severity.Rank() > highest.Rank() {
			highest = p.Severity
		}
	}
	return highest
}

// SuggestedFix returns the fix text for the best matching pattern, or
// GenericFix. Once state has moved past phase 1 with at least one strategy on
// record, DifferentApproachNote is appended.
func (c *Catalog) SuggestedFix(category models.ErrorCategory, message string, state models.ErrorState) string {
	fix := GenericFix
	if p, ok := c.FindMatchingPattern(category, message); ok {
		fix = p.SuggestedFix
	}
	if state.Phase >= models.PhaseOfficial && len(state.FixStrategiesAttempted) > 0 {
		fix += DifferentApproachNote
	}
	return fix
}

// Classification bundles the matcher results for one message.
type Classification struct {
	Category        models.ErrorCategory     `json:"category"`
	Matched         bool                     `json:"matched"`
	Pattern         *models.RecoveryPattern  `json:"pattern,omitempty"`
	AllMatches      []models.RecoveryPattern `json:"all_matches"`
	HighestSeverity models.Severity          `json:"highest_severity"`
}

// Classify runs FindMatchingPattern and FindAllMatchingPatterns together.
func (c *Catalog) Classify(category models.ErrorCategory, message string) Classification {
	out := Classification{
		Category:   category,
		AllMatches: c.FindAllMatchingPatterns(message),
	}
	if out.AllMatches == nil {
		out.AllMatches = []models.RecoveryPattern{}
	}
	if p, ok := c.FindMatchingPattern(category, message); ok {
		out.Matched = true
		out.Pattern = &p
	}
	out.HighestSeverity = HighestSeverity(out.AllMatches)
	return out
}
