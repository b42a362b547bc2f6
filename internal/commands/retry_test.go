package commands

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureStdout collects what output.Print* writes to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = original }()

	fn()

	require.NoError(t, w.Close())
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(b)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
}

func runJSON(t *testing.T, stdin string, args ...string) envelope {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"GOODVIBES_STATE_DIR", "GOODVIBES_BACKEND", "GOODVIBES_DB_PATH", "GOODVIBES_CATALOG"} {
		t.Setenv(key, "")
	}
	raw := captureStdout(t, func() {
		root := newRootCmd("test")
		root.SetIn(stringsReader(stdin))
		root.SetArgs(args)
		_ = root.Execute()
	})
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env), raw)
	return env
}

func TestRetryCommands_Lifecycle(t *testing.T) {
	stateDir := t.TempDir()
	runCLI(t, npmPayload, "--state-dir", stateDir, "hook", "tool-failure")
	runCLI(t, npmPayload, "--state-dir", stateDir, "hook", "tool-failure")

	stats := runJSON(t, "", "--state-dir", stateDir, "retry", "stats", "--scope", "/work/app")
	require.True(t, stats.Success)
	var s struct {
		Scope string `json:"scope"`
		Stats struct {
			TotalSignatures int `json:"total_signatures"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(stats.Data, &s))
	require.Equal(t, "/work/app", s.Scope)
	require.Equal(t, 1, s.Stats.TotalSignatures)

	show := runJSON(t, "", "--state-dir", stateDir, "retry", "show", "--scope", "/work/app")
	var list struct {
		Entries []struct {
			Signature     string `json:"signature"`
			Attempts      int    `json:"attempts"`
			PhaseAttempts int    `json:"phase_attempts"`
			Phase         int    `json:"phase"`
			Limit         int    `json:"limit"`
			Remaining     int    `json:"remaining"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(show.Data, &list))
	require.Len(t, list.Entries, 1)
	e := list.Entries[0]
	require.Equal(t, 2, e.Attempts)
	require.Equal(t, 0, e.PhaseAttempts)
	require.Equal(t, 2, e.Phase)
	require.Equal(t, 2, e.Limit)
	require.Equal(t, 2, e.Remaining)

	missing := runJSON(t, "", "--state-dir", stateDir, "retry", "show", "err_nope", "--scope", "/work/app")
	require.False(t, missing.Success)
	require.Equal(t, "NOT_TRACKED", missing.ErrorCode)

	cleared := runJSON(t, "", "--state-dir", stateDir, "retry", "clear", e.Signature, "--scope", "/work/app")
	require.True(t, cleared.Success)
	require.JSONEq(t, `{"cleared":["`+e.Signature+`"]}`, string(cleared.Data))

	stats = runJSON(t, "", "--state-dir", stateDir, "retry", "stats", "--scope", "/work/app")
	require.NoError(t, json.Unmarshal(stats.Data, &s))
	require.Equal(t, 0, s.Stats.TotalSignatures)
}

func TestRetryClear_RequiresExactlyOneTarget(t *testing.T) {
	env := runJSON(t, "", "--state-dir", t.TempDir(), "retry", "clear")
	require.False(t, env.Success)
	require.Contains(t, env.Error, "exactly one")
}

func TestRetryPrune_ReportsThreshold(t *testing.T) {
	env := runJSON(t, "", "--state-dir", t.TempDir(), "retry", "prune", "--max-age-hours", "6", "--scope", "/p")
	require.True(t, env.Success)
	require.JSONEq(t, `{"removed":0,"max_age_hours":6}`, string(env.Data))
}

func TestUnknownBackend_ReportsCode(t *testing.T) {
	env := runJSON(t, "", "--backend", "redis", "retry", "stats")
	require.False(t, env.Success)
	require.Equal(t, "UNKNOWN_BACKEND", env.ErrorCode)
}
