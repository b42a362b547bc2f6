package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/goodvibes/internal/app"
)

type doctorReport struct {
	Settings      map[string]app.Resolved `json:"settings"`
	StoreOK       bool                    `json:"store_ok"`
	SchemaVersion int64                   `json:"schema_version"`
	CatalogOK     bool                    `json:"catalog_ok"`
	CatalogErr    string                  `json:"catalog_error"`
	Patterns      int                     `json:"patterns"`
	RetryLimits   map[string]int          `json:"retry_limits"`
}

func TestDoctor_SQLiteBackend(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "goodvibes.db")
	env := runJSON(t, "", "doctor", "--backend", "sqlite", "--db-path", dbPath)
	require.True(t, env.Success, env.Error)

	var r doctorReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.True(t, r.StoreOK)
	assert.Equal(t, int64(1), r.SchemaVersion)
	assert.True(t, r.CatalogOK)
	assert.Positive(t, r.Patterns)
	assert.Equal(t, 2, r.RetryLimits["npm_install"])
	assert.Equal(t, 1, r.RetryLimits["file_not_found"])
	assert.Equal(t, app.Resolved{Value: "sqlite", Source: "cli"}, r.Settings["backend"])
	assert.Equal(t, "cli", r.Settings["db_path"].Source)
}

func TestDoctor_ReportsBrokenCatalog(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	env := runJSON(t, "", "doctor", "--state-dir", t.TempDir(), "--catalog", missing)
	require.True(t, env.Success, env.Error)

	var r doctorReport
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.True(t, r.StoreOK)
	assert.False(t, r.CatalogOK)
	assert.NotEmpty(t, r.CatalogErr)
	assert.Zero(t, r.Patterns)
}
