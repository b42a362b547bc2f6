package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/goodvibes/internal/models"
)

func sampleEntry(sig string, at time.Time) models.RetryEntry {
	return models.RetryEntry{
		Signature:     sig,
		Attempts:      3,
		PhaseAttempts: 1,
		LastAttempt:   at,
		Phase:         2,
		Category:      models.CategoryBuildFailure,
		LastFix:       "Clear the build cache and rebuild",
	}
}

// backends returns one fresh instance of every backend.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sq, err := OpenSQLite(context.Background(), filepath.Join(dir, "goodvibes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]Store{
		BackendFile:   NewFileStore(filepath.Join(dir, "state")),
		BackendSQLite: sq,
		BackendMemory: NewMemoryStore(0),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.Load(ctx, "/work/app")
			require.NoError(t, err)
			require.NotNil(t, empty)
			require.Empty(t, empty)

			in := map[string]models.RetryEntry{
				"err_1": sampleEntry("err_1", at),
				"err_2": {Signature: "err_2", Attempts: 1, PhaseAttempts: 1, LastAttempt: at.Add(time.Minute), Phase: 1},
			}
			require.NoError(t, s.Save(ctx, "/work/app", in))

			out, err := s.Load(ctx, "/work/app")
			require.NoError(t, err)
			require.Len(t, out, 2)
			for sig, want := range in {
				got := out[sig]
				assert.True(t, want.LastAttempt.Equal(got.LastAttempt), sig)
				got.LastAttempt = want.LastAttempt
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestStores_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "/a", map[string]models.RetryEntry{"err_a": sampleEntry("err_a", at)}))
			require.NoError(t, s.Save(ctx, "/b", map[string]models.RetryEntry{"err_b": sampleEntry("err_b", at)}))

			a, err := s.Load(ctx, "/a")
			require.NoError(t, err)
			require.Contains(t, a, "err_a")
			require.NotContains(t, a, "err_b")
		})
	}
}

func TestStores_SaveReplacesWholeMap(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{
				"err_1": sampleEntry("err_1", at),
				"err_2": sampleEntry("err_2", at),
			}))
			require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{
				"err_2": sampleEntry("err_2", at),
			}))

			out, err := s.Load(ctx, "/p")
			require.NoError(t, err)
			require.Len(t, out, 1)
			require.Contains(t, out, "err_2")

			require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{}))
			out, err = s.Load(ctx, "/p")
			require.NoError(t, err)
			require.Empty(t, out)
		})
	}
}

func TestStores_DropInvalidEntries(t *testing.T) {
	ctx := context.Background()
	at := time.Now().UTC()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			bad := sampleEntry("err_bad", at)
			bad.Phase = 7
			mismatched := sampleEntry("err_other", at)

			require.NoError(t, s.Save(ctx, "/p", map[string]models.RetryEntry{
				"err_ok":  sampleEntry("err_ok", at),
				"err_bad": bad,
				"err_key": mismatched,
			}))

			out, err := s.Load(ctx, "/p")
			require.NoError(t, err)
			require.Len(t, out, 1)
			require.Contains(t, out, "err_ok")
		})
	}
}

func TestSanitizeEntries(t *testing.T) {
	at := time.Now().UTC()
	tooManyPhaseAttempts := sampleEntry("err_3", at)
	tooManyPhaseAttempts.PhaseAttempts = 9
	noTime := sampleEntry("err_4", time.Time{})

	out := sanitizeEntries("/p", map[string]models.RetryEntry{
		"err_1": sampleEntry("err_1", at),
		"err_2": {Signature: "err_2", Attempts: -1, LastAttempt: at, Phase: 1},
		"err_3": tooManyPhaseAttempts,
		"err_4": noTime,
	})
	require.Equal(t, []string{"err_1"}, keys(out))
}

func keys(m map[string]models.RetryEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestOpen_SelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{StateDir: dir})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Backend: BackendSQLite, DBPath: filepath.Join(dir, "gv.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "redis"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
