package models

import (
	"slices"
	"time"
)

// ErrorCategory is the coarse failure class assigned by the hook layer before
// the engine runs. The engine never infers it; it only maps it onto the finer
// pattern categories of the recovery catalog.
type ErrorCategory string

// Error category constants.
const (
	CategoryNpmInstall      ErrorCategory = "npm_install"
	CategoryTypeScriptError ErrorCategory = "typescript_error"
	CategoryTestFailure     ErrorCategory = "test_failure"
	CategoryBuildFailure    ErrorCategory = "build_failure"
	CategoryFileNotFound    ErrorCategory = "file_not_found"
	CategoryGitConflict     ErrorCategory = "git_conflict"
	CategoryDatabaseError   ErrorCategory = "database_error"
	CategoryAPIError        ErrorCategory = "api_error"
	CategoryUnknown         ErrorCategory = "unknown"
)

// AllErrorCategories returns every category in declaration order.
func AllErrorCategories() []ErrorCategory {
	return []ErrorCategory{
		CategoryNpmInstall,
		CategoryTypeScriptError,
		CategoryTestFailure,
		CategoryBuildFailure,
		CategoryFileNotFound,
		CategoryGitConflict,
		CategoryDatabaseError,
		CategoryAPIError,
		CategoryUnknown,
	}
}

// Valid reports whether c is one of the known categories.
func (c ErrorCategory) Valid() bool {
	return slices.Contains(AllErrorCategories(), c)
}

// ParseErrorCategory maps s onto a known category; anything else is unknown.
func ParseErrorCategory(s string) ErrorCategory {
	c := ErrorCategory(s)
	if c.Valid() {
		return c
	}
	return CategoryUnknown
}

// Severity describes how disruptive a matched error class is.
type Severity string

// Severity constants, lowest first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal of s (low=0 .. critical=3), or -1 for an unknown value.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four severity levels.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// RecoveryPattern is one entry of the recovery catalog. Category is the
// fine-grained pattern category, not an ErrorCategory.
type RecoveryPattern struct {
	Category     string   `json:"category" yaml:"category" validate:"required"`
	Description  string   `json:"description" yaml:"description"`
	Patterns     []string `json:"patterns" yaml:"patterns" validate:"required,min=1,dive,required"`
	SuggestedFix string   `json:"suggested_fix" yaml:"suggested_fix" validate:"required"`
	Severity     Severity `json:"severity" yaml:"severity" validate:"required,oneof=low medium high critical"`
}

// Phase bounds. Phase 1 is raw attempts, phase 2 adds official documentation,
// phase 3 adds community sources.
const (
	PhaseRaw       = 1
	PhaseOfficial  = 2
	PhaseCommunity = 3
	MaxPhase       = PhaseCommunity
)

// FixStrategy records one attempted fix for a tracked error.
type FixStrategy struct {
	Phase     int       `json:"phase"`
	Strategy  string    `json:"strategy"`
	Succeeded bool      `json:"succeeded"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorState is the in-memory tracking record for one error signature.
// AttemptsThisPhase resets only on phase escalation; TotalAttempts never decreases.
type ErrorState struct {
	Signature              string        `json:"signature"`
	Category               ErrorCategory `json:"category"`
	Phase                  int           `json:"phase"`
	AttemptsThisPhase      int           `json:"attempts_this_phase"`
	TotalAttempts          int           `json:"total_attempts"`
	OfficialDocsSearched   []string      `json:"official_docs_searched"`
	OfficialDocsContent    string        `json:"official_docs_content,omitempty"`
	UnofficialDocsSearched []string      `json:"unofficial_docs_searched"`
	UnofficialDocsContent  string        `json:"unofficial_docs_content,omitempty"`
	FixStrategiesAttempted []FixStrategy `json:"fix_strategies_attempted"`
}

// Clone returns a deep copy of s so callers can derive a new state without
// aliasing the slices of the old one.
func (s ErrorState) Clone() ErrorState {
	out := s
	out.OfficialDocsSearched = slices.Clone(s.OfficialDocsSearched)
	out.UnofficialDocsSearched = slices.Clone(s.UnofficialDocsSearched)
	out.FixStrategiesAttempted = slices.Clone(s.FixStrategiesAttempted)
	return out
}

// RetryEntry is the persisted sibling of ErrorState, one per signature per scope.
//
// Attempts counts every attempt over the entry's lifetime and feeds stats.
// PhaseAttempts counts attempts since the entry last changed phase and drives
// the escalation arithmetic, exactly like ErrorState.AttemptsThisPhase.
type RetryEntry struct {
	Signature     string        `json:"signature" validate:"required"`
	Attempts      int           `json:"attempts" validate:"gte=0"`
	PhaseAttempts int           `json:"phase_attempts" validate:"gte=0,ltefield=Attempts"`
	LastAttempt   time.Time     `json:"last_attempt" validate:"required"`
	Phase         int           `json:"phase" validate:"gte=1,lte=3"`
	Category      ErrorCategory `json:"category,omitempty"`
	LastFix       string        `json:"last_fix,omitempty"`
}

// RetryStats aggregates the entries of one scope.
type RetryStats struct {
	TotalSignatures int `json:"total_signatures"`
	TotalAttempts   int `json:"total_attempts"`
	Phase1Count     int `json:"phase1_count"`
	Phase2Count     int `json:"phase2_count"`
	Phase3Count     int `json:"phase3_count"`
}

// Hints are documentation pointers unlocked by phase.
type Hints struct {
	Official  []string `json:"official"`
	Community []string `json:"community"`
}
