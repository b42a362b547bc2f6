package actions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dotcommander/goodvibes/internal/models"
	"github.com/dotcommander/goodvibes/internal/patterns"
	"github.com/dotcommander/goodvibes/internal/retry"
	"github.com/dotcommander/goodvibes/internal/signature"
)

// Failure is one failed tool call.
type Failure struct {
	ToolName  string
	Command   string
	ErrorText string
	// Category overrides ClassifyCategory when set.
	Category models.ErrorCategory
}

// Recovery is what the agent is told after a failure.
type Recovery struct {
	Signature        string                  `json:"signature"`
	Category         models.ErrorCategory    `json:"category"`
	Phase            int                     `json:"phase"`
	PhaseDescription string                  `json:"phase_description"`
	Attempts         int                     `json:"attempts"`
	PhaseAttempts    int                     `json:"phase_attempts"`
	Remaining        int                     `json:"remaining"`
	Escalated        bool                    `json:"escalated"`
	Exhausted        bool                    `json:"exhausted"`
	SuggestedFix     string                  `json:"suggested_fix"`
	Severity         models.Severity         `json:"severity"`
	Pattern          *models.RecoveryPattern `json:"pattern,omitempty"`
	Hints            models.Hints            `json:"hints"`
}

// Engine ties the catalog to a persisted tracker.
type Engine struct {
	Catalog *patterns.Catalog
	Tracker *retry.Tracker
}

// NewEngine returns an engine over catalog and tracker.
func NewEngine(catalog *patterns.Catalog, tracker *retry.Tracker) *Engine {
	return &Engine{Catalog: catalog, Tracker: tracker}
}

// RecordFailure records f against its signature, escalates when the phase
// budget is spent and returns the guidance for the next attempt.
func (e *Engine) RecordFailure(ctx context.Context, f Failure) (Recovery, error) {
	category := f.Category
	if category == "" {
		category = ClassifyCategory(f.ToolName, f.Command, f.ErrorText)
	}
	sig := signature.Generate(f.ErrorText, f.ToolName)
	policy := e.Tracker.Policy()

	baseFix := e.Catalog.SuggestedFix(category, f.ErrorText, retry.NewErrorState(sig, category))
	entry, err := e.Tracker.RecordAttempt(ctx, sig, retry.Attempt{Category: category, Fix: baseFix})
	if err != nil {
		return Recovery{}, fmt.Errorf("record attempt: %w", err)
	}

	escalated := false
	if policy.ShouldEscalate(retry.StateFromEntry(entry, category)) {
		entry, err = e.Tracker.Escalate(ctx, sig)
		if err != nil {
			return Recovery{}, fmt.Errorf("escalate: %w", err)
		}
		escalated = true
	}

	state := retry.StateFromEntry(entry, category)
	cls := e.Catalog.Classify(category, f.ErrorText)

	return Recovery{
		Signature:        sig,
		Category:         category,
		Phase:            state.Phase,
		PhaseDescription: retry.PhaseDescription(state.Phase),
		Attempts:         entry.Attempts,
		PhaseAttempts:    entry.PhaseAttempts,
		Remaining:        policy.RemainingAttempts(state),
		Escalated:        escalated,
		Exhausted:        policy.HasExhausted(state),
		SuggestedFix:     e.Catalog.SuggestedFix(category, f.ErrorText, state),
		Severity:         cls.HighestSeverity,
		Pattern:          cls.Pattern,
		Hints:            e.Catalog.ResearchHints(category, f.ErrorText, state.Phase),
	}, nil
}

// SessionSummary is reported when a session starts.
type SessionSummary struct {
	Pruned      int                 `json:"pruned"`
	Stats       models.RetryStats   `json:"stats"`
	Outstanding []models.RetryEntry `json:"outstanding"`
}

// StartSession prunes entries older than maxAge and lists what is still
// tracked, most recent first.
func StartSession(ctx context.Context, tracker *retry.Tracker, maxAge time.Duration) (SessionSummary, error) {
	pruned, err := tracker.Prune(ctx, maxAge)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("prune: %w", err)
	}
	entries, err := tracker.Entries(ctx)
	if err != nil {
		return SessionSummary{}, err
	}
	return SessionSummary{
		Pruned:      pruned,
		Stats:       retry.Aggregate(entries),
		Outstanding: SortedEntries(entries),
	}, nil
}

// SortedEntries orders entries by last attempt, newest first.
func SortedEntries(entries map[string]models.RetryEntry) []models.RetryEntry {
	out := make([]models.RetryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAttempt.Equal(out[j].LastAttempt) {
			return out[i].LastAttempt.After(out[j].LastAttempt)
		}
		return out[i].Signature < out[j].Signature
	})
	return out
}
