package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotcommander/goodvibes/internal/models"
)

// FileStore keeps one JSON file per scope under Dir. Writes go to a temp file
// in the same directory and are renamed over the target.
type FileStore struct {
	Dir string
}

// NewFileStore returns a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Path returns the file backing scope.
func (s *FileStore) Path(scope string) string {
	return filepath.Join(s.Dir, scopeFileName(scope))
}

// scopeFileName makes a readable, collision-resistant file name for scope:
// the scope's base name plus a short hash of the full scope.
func scopeFileName(scope string) string {
	sum := sha256.Sum256([]byte(scope))
	base := sanitizeToken(filepath.Base(scope), 48)
	return fmt.Sprintf("retries-%s-%s.json", base, hex.EncodeToString(sum[:4]))
}

func sanitizeToken(raw string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	if strings.Trim(out, "_") == "" {
		return "scope"
	}
	return out
}

// Load returns the scope's entries. A missing or unparseable file is an
// empty map; invalid entries are dropped.
func (s *FileStore) Load(_ context.Context, scope string) (map[string]models.RetryEntry, error) {
	path := s.Path(scope)
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from configured state dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]models.RetryEntry{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries map[string]models.RetryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Default().Warn("retry state unreadable, starting empty", "path", path, "error", err)
		return map[string]models.RetryEntry{}, nil
	}
	return sanitizeEntries(scope, entries), nil
}

// Save atomically replaces the scope's file with the valid subset of entries.
func (s *FileStore) Save(_ context.Context, scope string, entries map[string]models.RetryEntry) error {
	data, err := json.MarshalIndent(sanitizeEntries(scope, entries), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal retry entries: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	path := s.Path(scope)
	tmp, err := os.CreateTemp(s.Dir, ".retries-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
