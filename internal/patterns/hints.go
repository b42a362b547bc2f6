package patterns

import "github.com/dotcommander/goodvibes/internal/models"

// Generic hints used when a category has no entry in the hint table.
var (
	genericOfficial  = []string{"official documentation"}     //nolint:gochecknoglobals // read-only fallback
	genericCommunity = []string{"stackoverflow", "github issues"} //nolint:gochecknoglobals // read-only fallback
)

// ResearchHints returns the documentation pointers unlocked at phase:
// official sources from phase 2, community sources from phase 3. The message
// does not influence the result yet.
func (c *Catalog) ResearchHints(category models.ErrorCategory, _ string, phase int) models.Hints {
	official, community := genericOfficial, genericCommunity
	if key, ok := c.hintKeys[category]; ok {
		if h, ok := c.hints[key]; ok {
			official, community = h.Official, h.Community
		}
	}

	out := models.Hints{Official: []string{}, Community: []string{}}
	if phase >= models.PhaseOfficial {
		out.Official = append(out.Official, official...)
	}
	if phase >= models.PhaseCommunity {
		out.Community = append(out.Community, community...)
	}
	return out
}
