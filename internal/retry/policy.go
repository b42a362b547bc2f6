// Package retry tracks retry attempts per error signature through three
// escalation phases, each with its own retry budget.
//
// Two call conventions share one arithmetic: Policy works on an in-memory
// models.ErrorState, Tracker loads and saves models.RetryEntry maps through a
// Store. Both count attempts within the current phase for escalation.
package retry

import (
	"maps"
	"time"

	"github.com/dotcommander/goodvibes/internal/models"
)

// Limits is the per-category retry budget for a single phase.
type Limits map[models.ErrorCategory]int

// DefaultLimits returns the built-in budgets. file_not_found is strict since a
// missing path rarely fixes itself; typescript_error is lenient since type
// errors often need a few iterations.
func DefaultLimits() Limits {
	return Limits{
		models.CategoryNpmInstall:      2,
		models.CategoryTypeScriptError: 3,
		models.CategoryTestFailure:     2,
		models.CategoryBuildFailure:    2,
		models.CategoryFileNotFound:    1,
		models.CategoryGitConflict:     2,
		models.CategoryDatabaseError:   2,
		models.CategoryAPIError:        2,
		models.CategoryUnknown:         2,
	}
}

// fallbackLimit applies to categories missing from a Limits table.
const fallbackLimit = 2

// Policy answers escalation questions for in-memory error states.
type Policy struct {
	limits Limits
}

// NewPolicy returns a policy over a copy of limits; nil means DefaultLimits.
func NewPolicy(limits Limits) Policy {
	if limits == nil {
		limits = DefaultLimits()
	}
	return Policy{limits: maps.Clone(limits)}
}

// Limit returns the per-phase budget for category.
func (p Policy) Limit(category models.ErrorCategory) int {
	if n, ok := p.limits[category]; ok && n > 0 {
		return n
	}
	if n, ok := p.limits[models.CategoryUnknown]; ok && n > 0 {
		return n
	}
	return fallbackLimit
}

// Limits returns a copy of the policy's budget table.
func (p Policy) Limits() Limits { return maps.Clone(p.limits) }

func (p Policy) shouldEscalate(category models.ErrorCategory, phase, phaseAttempts int) bool {
	return phaseAttempts >= p.Limit(category) && phase < models.MaxPhase
}

func (p Policy) exhausted(category models.ErrorCategory, phase, phaseAttempts int) bool {
	return phase >= models.MaxPhase && phaseAttempts >= p.Limit(category)
}

func (p Policy) remaining(category models.ErrorCategory, phaseAttempts int) int {
	return max(0, p.Limit(category)-phaseAttempts)
}

// ShouldEscalate reports whether the phase budget is spent and a higher phase exists.
func (p Policy) ShouldEscalate(s models.ErrorState) bool {
	return p.shouldEscalate(s.Category, s.Phase, s.AttemptsThisPhase)
}

// HasExhausted reports whether phase 3's budget is spent.
func (p Policy) HasExhausted(s models.ErrorState) bool {
	return p.exhausted(s.Category, s.Phase, s.AttemptsThisPhase)
}

// RemainingAttempts returns the attempts left in the current phase.
func (p Policy) RemainingAttempts(s models.ErrorState) int {
	return p.remaining(s.Category, s.AttemptsThisPhase)
}

// Escalate returns s moved to the next phase with the phase counter reset.
// At phase 3 it returns s unchanged.
func Escalate(s models.ErrorState) models.ErrorState {
	if s.Phase >= models.MaxPhase {
		return s
	}
	next := s.Clone()
	next.Phase = max(s.Phase, models.PhaseRaw) + 1
	next.AttemptsThisPhase = 0
	return next
}

// NewErrorState starts tracking signature at phase 1 with no attempts.
func NewErrorState(signature string, category models.ErrorCategory) models.ErrorState {
	return models.ErrorState{
		Signature:              signature,
		Category:               category,
		Phase:                  models.PhaseRaw,
		OfficialDocsSearched:   []string{},
		UnofficialDocsSearched: []string{},
		FixStrategiesAttempted: []models.FixStrategy{},
	}
}

// RecordAttempt returns s with one more attempt in the current phase and the
// strategy appended to its history.
func RecordAttempt(s models.ErrorState, strategy string, succeeded bool, at time.Time) models.ErrorState {
	next := s.Clone()
	next.AttemptsThisPhase++
	next.TotalAttempts++
	next.FixStrategiesAttempted = append(next.FixStrategiesAttempted, models.FixStrategy{
		Phase:     s.Phase,
		Strategy:  strategy,
		Succeeded: succeeded,
		Timestamp: at,
	})
	return next
}

// AddOfficialDocs returns s with sources appended and content replaced when non-empty.
func AddOfficialDocs(s models.ErrorState, sources []string, content string) models.ErrorState {
	next := s.Clone()
	next.OfficialDocsSearched = append(next.OfficialDocsSearched, sources...)
	if content != "" {
		next.OfficialDocsContent = content
	}
	return next
}

// AddCommunityDocs returns s with community sources appended and content
// replaced when non-empty.
func AddCommunityDocs(s models.ErrorState, sources []string, content string) models.ErrorState {
	next := s.Clone()
	next.UnofficialDocsSearched = append(next.UnofficialDocsSearched, sources...)
	if content != "" {
		next.UnofficialDocsContent = content
	}
	return next
}

// PhaseDescription returns a human-readable label for phase.
func PhaseDescription(phase int) string {
	switch phase {
	case models.PhaseRaw:
		return "Phase 1: raw attempts with existing knowledge"
	case models.PhaseOfficial:
		return "Phase 2: consult official documentation"
	case models.PhaseCommunity:
		return "Phase 3: consult community sources"
	default:
		return "Unknown phase"
	}
}
