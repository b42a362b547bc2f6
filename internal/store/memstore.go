package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dotcommander/goodvibes/internal/models"
)

// MemoryStore keeps entries in process memory. When a scope holds more than
// maxEntriesPerScope entries after a save, the least recently attempted ones
// are evicted.
type MemoryStore struct {
	mu                 sync.Mutex
	maxEntriesPerScope int
	scopes             map[string]map[string]models.RetryEntry
}

// NewMemoryStore returns an empty store; maxEntriesPerScope <= 0 disables eviction.
func NewMemoryStore(maxEntriesPerScope int) *MemoryStore {
	return &MemoryStore{
		maxEntriesPerScope: maxEntriesPerScope,
		scopes:             make(map[string]map[string]models.RetryEntry),
	}
}

// Load returns a copy of the scope's entries.
func (s *MemoryStore) Load(_ context.Context, scope string) (map[string]models.RetryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntries(s.scopes[scope]), nil
}

// Save replaces the scope's entries with a validated copy of entries.
func (s *MemoryStore) Save(_ context.Context, scope string, entries map[string]models.RetryEntry) error {
	kept := sanitizeEntries(scope, entries)
	s.evict(kept)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(kept) == 0 {
		delete(s.scopes, scope)
		return nil
	}
	s.scopes[scope] = kept
	return nil
}

func (s *MemoryStore) evict(entries map[string]models.RetryEntry) {
	if s.maxEntriesPerScope <= 0 || len(entries) <= s.maxEntriesPerScope {
		return
	}
	sigs := make([]string, 0, len(entries))
	for sig := range entries {
		sigs = append(sigs, sig)
	}
	// Oldest first; signature breaks ties so eviction is deterministic.
	sort.Slice(sigs, func(i, j int) bool {
		a, b := entries[sigs[i]], entries[sigs[j]]
		if !a.LastAttempt.Equal(b.LastAttempt) {
			return a.LastAttempt.Before(b.LastAttempt)
		}
		return sigs[i] < sigs[j]
	})
	for _, sig := range sigs[:len(sigs)-s.maxEntriesPerScope] {
		delete(entries, sig)
	}
}

// Len returns the number of entries across all scopes.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, m := range s.scopes {
		total += len(m)
	}
	return total
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
