// Package store persists retry entries: one signature→entry map per scope
// (normally a project directory). Every backend treats missing, corrupt or
// structurally invalid data as "no entries".
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/go-playground/validator/v10"

	"github.com/dotcommander/goodvibes/internal/models"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Store loads and saves the entry map of a scope. Save replaces the whole map.
type Store interface {
	Load(ctx context.Context, scope string) (map[string]models.RetryEntry, error)
	Save(ctx context.Context, scope string, entries map[string]models.RetryEntry) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend  string
	StateDir string
	DBPath   string
	// MaxEntriesPerScope caps the memory backend; 0 means unbounded.
	MaxEntriesPerScope int
}

// Open returns the backend named by opts.Backend; empty means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.StateDir), nil
	case BackendSQLite:
		return OpenSQLite(ctx, opts.DBPath)
	case BackendMemory:
		return NewMemoryStore(opts.MaxEntriesPerScope), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

//nolint:gochecknoglobals // validator caches struct metadata; one instance per process
var validate = validator.New(validator.WithRequiredStructEnabled())

// sanitizeEntries drops entries that fail structural validation or whose map
// key disagrees with their signature. Dropped entries are logged.
func sanitizeEntries(scope string, in map[string]models.RetryEntry) map[string]models.RetryEntry {
	out := make(map[string]models.RetryEntry, len(in))
	for key, e := range in {
		if e.Signature != key {
			slog.Default().Warn("retry entry key mismatch, dropping", "scope", scope, "key", key, "signature", e.Signature)
			continue
		}
		if err := validate.Struct(e); err != nil {
			slog.Default().Warn("retry entry invalid, dropping", "scope", scope, "signature", key, "error", err)
			continue
		}
		out[key] = e
	}
	return out
}

func cloneEntries(in map[string]models.RetryEntry) map[string]models.RetryEntry {
	if in == nil {
		return map[string]models.RetryEntry{}
	}
	return maps.Clone(in)
}
