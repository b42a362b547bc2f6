package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dotcommander/goodvibes/internal/models"
)

// SQLiteStore keeps every scope in one SQLite database, one row per
// (scope, signature). Save replaces a scope's rows in a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at dbPath.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := InitDBWithPath(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for diagnostics.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Load returns the scope's entries. Rows whose timestamp does not parse or
// that fail validation are dropped.
func (s *SQLiteStore) Load(ctx context.Context, scope string) (map[string]models.RetryEntry, error) {
	entries := map[string]models.RetryEntry{}
	err := RetryWithBackoff(ctx, func() error {
		clear(entries)
		rows, err := s.db.QueryContext(ctx, `
			SELECT signature, attempts, phase_attempts, phase, last_attempt, category, last_fix
			FROM retry_entries
			WHERE scope = ?
		`, scope)
		if err != nil {
			return fmt.Errorf("query retry entries: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var e models.RetryEntry
			var lastAttempt, category string
			if err := rows.Scan(&e.Signature, &e.Attempts, &e.PhaseAttempts, &e.Phase, &lastAttempt, &category, &e.LastFix); err != nil {
				return fmt.Errorf("scan retry entry: %w", err)
			}
			t, err := time.Parse(time.RFC3339Nano, lastAttempt)
			if err != nil {
				slog.Default().Warn("retry entry timestamp unreadable, dropping", "scope", scope, "signature", e.Signature, "error", err)
				continue
			}
			e.LastAttempt = t
			e.Category = models.ErrorCategory(category)
			entries[e.Signature] = e
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sanitizeEntries(scope, entries), nil
}

// Save replaces the scope's rows with the valid subset of entries.
func (s *SQLiteStore) Save(ctx context.Context, scope string, entries map[string]models.RetryEntry) error {
	entries = sanitizeEntries(scope, entries)
	return Transact(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM retry_entries WHERE scope = ?`, scope); err != nil {
			return fmt.Errorf("clear scope: %w", err)
		}
		for sig, e := range entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO retry_entries (scope, signature, attempts, phase_attempts, phase, last_attempt, category, last_fix)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, scope, sig, e.Attempts, e.PhaseAttempts, e.Phase, e.LastAttempt.UTC().Format(time.RFC3339Nano), string(e.Category), e.LastFix); err != nil {
				return fmt.Errorf("insert retry entry %s: %w", sig, err)
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
