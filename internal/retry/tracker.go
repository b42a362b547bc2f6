package retry

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/dotcommander/goodvibes/internal/models"
)

// DefaultPruneAge is the age past which Prune drops entries by default.
const DefaultPruneAge = 24 * time.Hour

// Store is the persistence boundary: one signature→entry map per scope.
// Load reports "no data" (absent, corrupt, wrong shape) as an empty map and a
// nil error. Entries that fail validation are dropped and the rest are kept.
// Only unexpected read failures return an error.
type Store interface {
	Load(ctx context.Context, scope string) (map[string]models.RetryEntry, error)
	Save(ctx context.Context, scope string, entries map[string]models.RetryEntry) error
}

// Tracker drives the escalation policy over entries persisted in a Store.
// Every mutation is a read-modify-write of the scope's whole map. There is no
// cross-process locking; the last writer wins.
type Tracker struct {
	store  Store
	scope  string
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPolicy sets the retry budgets.
func WithPolicy(p Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// NewTracker returns a tracker for scope backed by store.
func NewTracker(store Store, scope string, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		scope:  scope,
		policy: NewPolicy(nil),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the tracker's policy.
func (t *Tracker) Policy() Policy { return t.policy }

// Scope returns the scope key the tracker reads and writes.
func (t *Tracker) Scope() string { return t.scope }

// Attempt describes one observed failure.
type Attempt struct {
	Category models.ErrorCategory
	// Phase is the phase the caller believes the error is in; the stored
	// phase never goes down.
	Phase int
	// Fix is the suggestion shown for this attempt, kept for the next one.
	Fix string
}

func (t *Tracker) load(ctx context.Context) (map[string]models.RetryEntry, error) {
	entries, err := t.store.Load(ctx, t.scope)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = map[string]models.RetryEntry{}
	}
	return entries, nil
}

// save writes entries and swallows failures after logging them; a failed
// write must not abort the hook.
func (t *Tracker) save(ctx context.Context, entries map[string]models.RetryEntry) {
	if err := t.store.Save(ctx, t.scope, entries); err != nil {
		t.log.Warn("retry state save failed", "scope", t.scope, "entries", len(entries), "error", err)
	}
}

// RecordAttempt counts one attempt for signature and returns the updated entry.
func (t *Tracker) RecordAttempt(ctx context.Context, signature string, a Attempt) (models.RetryEntry, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return models.RetryEntry{}, err
	}

	e, ok := entries[signature]
	if !ok {
		e = models.RetryEntry{Signature: signature, Phase: models.PhaseRaw}
	}
	phase := min(max(e.Phase, a.Phase, models.PhaseRaw), models.MaxPhase)
	if phase > e.Phase {
		e.PhaseAttempts = 0
	}
	e.Phase = phase
	e.Attempts++
	e.PhaseAttempts++
	e.LastAttempt = t.now().UTC()
	if a.Category != "" {
		e.Category = a.Category
	}
	if a.Fix != "" {
		e.LastFix = a.Fix
	}

	entries[signature] = e
	t.save(ctx, entries)
	return e, nil
}

// Entry returns the stored entry for signature.
func (t *Tracker) Entry(ctx context.Context, signature string) (models.RetryEntry, bool, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return models.RetryEntry{}, false, err
	}
	e, ok := entries[signature]
	return e, ok, nil
}

// Entries returns a copy of every stored entry in the scope.
func (t *Tracker) Entries(ctx context.Context) (map[string]models.RetryEntry, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	return maps.Clone(entries), nil
}

func (t *Tracker) categoryOf(e models.RetryEntry, override models.ErrorCategory) models.ErrorCategory {
	if override != "" {
		return override
	}
	if e.Category != "" {
		return e.Category
	}
	return models.CategoryUnknown
}

// ShouldEscalate reports whether signature's phase budget is spent and a
// higher phase exists. An untracked signature never escalates. An empty
// category falls back to the one stored on the entry.
func (t *Tracker) ShouldEscalate(ctx context.Context, signature string, category models.ErrorCategory) (bool, error) {
	e, ok, err := t.Entry(ctx, signature)
	if err != nil || !ok {
		return false, err
	}
	return t.policy.shouldEscalate(t.categoryOf(e, category), e.Phase, e.PhaseAttempts), nil
}

// HasExhausted reports whether signature spent phase 3's budget.
func (t *Tracker) HasExhausted(ctx context.Context, signature string, category models.ErrorCategory) (bool, error) {
	e, ok, err := t.Entry(ctx, signature)
	if err != nil || !ok {
		return false, err
	}
	return t.policy.exhausted(t.categoryOf(e, category), e.Phase, e.PhaseAttempts), nil
}

// RemainingAttempts returns the attempts left in signature's current phase.
// An untracked signature has its full budget.
func (t *Tracker) RemainingAttempts(ctx context.Context, signature string, category models.ErrorCategory) (int, error) {
	e, ok, err := t.Entry(ctx, signature)
	if err != nil {
		return 0, err
	}
	if !ok {
		if category == "" {
			category = models.CategoryUnknown
		}
		return t.policy.Limit(category), nil
	}
	return t.policy.remaining(t.categoryOf(e, category), e.PhaseAttempts), nil
}

// Escalate moves signature to the next phase and resets its phase counter.
// Lifetime attempts are kept. At phase 3, or for an untracked signature, it
// is a no-op returning the current entry.
func (t *Tracker) Escalate(ctx context.Context, signature string) (models.RetryEntry, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return models.RetryEntry{}, err
	}
	e, ok := entries[signature]
	if !ok || e.Phase >= models.MaxPhase {
		return e, nil
	}
	e.Phase = max(e.Phase, models.PhaseRaw) + 1
	e.PhaseAttempts = 0
	entries[signature] = e
	t.save(ctx, entries)
	return e, nil
}

// Clear removes signature, typically once the error is resolved.
func (t *Tracker) Clear(ctx context.Context, signature string) (bool, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := entries[signature]; !ok {
		return false, nil
	}
	delete(entries, signature)
	t.save(ctx, entries)
	return true, nil
}

// Prune removes every entry whose last attempt is strictly older than
// now-maxAge in one pass. An entry exactly at the cutoff is kept. maxAge <= 0
// means DefaultPruneAge. Returns the number removed.
func (t *Tracker) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultPruneAge
	}
	entries, err := t.load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := t.now().Add(-maxAge)
	removed := 0
	for sig, e := range entries {
		if e.LastAttempt.Before(cutoff) {
			delete(entries, sig)
			removed++
		}
	}
	if removed > 0 {
		t.save(ctx, entries)
	}
	return removed, nil
}

// Stats aggregates the scope's entries.
func (t *Tracker) Stats(ctx context.Context) (models.RetryStats, error) {
	entries, err := t.load(ctx)
	if err != nil {
		return models.RetryStats{}, err
	}
	return Aggregate(entries), nil
}

// Aggregate computes stats over entries.
func Aggregate(entries map[string]models.RetryEntry) models.RetryStats {
	var s models.RetryStats
	for _, e := range entries {
		s.TotalSignatures++
		s.TotalAttempts += e.Attempts
		switch e.Phase {
		case models.PhaseRaw:
			s.Phase1Count++
		case models.PhaseOfficial:
			s.Phase2Count++
		case models.PhaseCommunity:
			s.Phase3Count++
		}
	}
	return s
}

// State lifts signature's persisted entry into an ErrorState so the in-memory
// Policy and fix suggestions can run on it. A stored LastFix becomes the one
// known failed strategy. An untracked signature yields a fresh state.
func (t *Tracker) State(ctx context.Context, signature string, category models.ErrorCategory) (models.ErrorState, error) {
	e, ok, err := t.Entry(ctx, signature)
	if err != nil {
		return models.ErrorState{}, err
	}
	if !ok {
		if category == "" {
			category = models.CategoryUnknown
		}
		return NewErrorState(signature, category), nil
	}
	return StateFromEntry(e, t.categoryOf(e, category)), nil
}

// StateFromEntry converts a persisted entry into an ErrorState.
func StateFromEntry(e models.RetryEntry, category models.ErrorCategory) models.ErrorState {
	s := NewErrorState(e.Signature, category)
	s.Phase = min(max(e.Phase, models.PhaseRaw), models.MaxPhase)
	s.AttemptsThisPhase = e.PhaseAttempts
	s.TotalAttempts = e.Attempts
	if e.LastFix != "" {
		s.FixStrategiesAttempted = append(s.FixStrategiesAttempted, models.FixStrategy{
			Phase:     s.Phase,
			Strategy:  e.LastFix,
			Timestamp: e.LastAttempt,
		})
	}
	return s
}
