package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/goodvibes/internal/models"
)

func TestInitDBWithPath_CreatesSchemaInWALMode(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "goodvibes.db")

	db, err := InitDBWithPath(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.FileExists(t, dbPath)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='retry_entries'").Scan(&name))

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)
}

func TestSchemaVersion_UpToDateAfterInit(t *testing.T) {
	db, err := InitDBWithPath(context.Background(), filepath.Join(t.TempDir(), "goodvibes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	current, latest, err := SchemaVersion(db)
	require.NoError(t, err)
	require.Equal(t, int64(1), latest)
	require.Equal(t, latest, current)
}

func TestInitDBWithPath_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "goodvibes.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "/p", map[string]models.RetryEntry{"err_1": sampleEntry("err_1", time.Now().UTC())}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	out, err := second.Load(ctx, "/p")
	require.NoError(t, err)
	require.Contains(t, out, "err_1")
}

func TestSQLiteStore_UnreadableTimestampDropsRow(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "goodvibes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{"err_1": sampleEntry("err_1", time.Now().UTC())}))
	_, err = s.DB().Exec(`
		INSERT INTO retry_entries (scope, signature, attempts, phase_attempts, phase, last_attempt, category, last_fix)
		VALUES ('/p', 'err_2', 1, 1, 1, 'yesterday', '', '')
	`)
	require.NoError(t, err)

	out, err := s.Load(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Contains(t, out, "err_1")
}

func TestSQLiteStore_MemoryDSN(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{"err_1": sampleEntry("err_1", time.Now().UTC())}))
	out, err := s.Load(ctx, "/p")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	require.Equal(t, "file:/tmp/x.db?mode=rwc", normalizeSQLiteDSN("/tmp/x.db"))
	require.Equal(t, "file::memory:", normalizeSQLiteDSN(":memory:"))
	require.Equal(t, "file:foo.db?cache=shared", normalizeSQLiteDSN("file:foo.db?cache=shared"))
}
