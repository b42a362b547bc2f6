package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/goodvibes/internal/models"
)

const customCatalog = `
patterns:
  - category: flaky_network
    description: CI network flake
    patterns: ['(?i)ECONNRESET']
    suggested_fix: Re-run the job once before investigating.
    severity: low
category_map:
  api_error: [flaky_network]
hint_keys:
  api_error: flaky_network
hints:
  flaky_network:
    official: [status.example.com]
    community: [forum.example.com]
`

func TestParseCatalog_Overrides(t *testing.T) {
	c, err := ParseCatalog([]byte(customCatalog))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	p, ok := c.FindMatchingPattern(models.CategoryAPIError, "read ECONNRESET")
	require.True(t, ok)
	require.Equal(t, "flaky_network", p.Category)
	require.Equal(t, models.SeverityLow, p.Severity)

	h := c.ResearchHints(models.CategoryAPIError, "", 3)
	require.Equal(t, []string{"status.example.com"}, h.Official)
	require.Equal(t, []string{"forum.example.com"}, h.Community)
}

func TestParseCatalog_PartialKeepsDefaults(t *testing.T) {
	c, err := ParseCatalog([]byte("hints:\n  test_failure:\n    official: [docs.local]\n"))
	require.NoError(t, err)
	require.Equal(t, len(DefaultPatterns()), c.Len())
	require.Equal(t, []string{"docs.local"}, c.ResearchHints(models.CategoryTestFailure, "", 2).Official)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "patterns: [",
		"bad severity": "patterns:\n  - category: x\n    patterns: ['a']\n    suggested_fix: f\n    severity: apocalyptic\n",
		"no regexes":   "patterns:\n  - category: x\n    patterns: []\n    suggested_fix: f\n    severity: low\n",
		"bad regex":    "patterns:\n  - category: x\n    patterns: ['(']\n    suggested_fix: f\n    severity: low\n",
		"bad category": "category_map:\n  nonsense: [x]\n",
		"missing fix":  "patterns:\n  - category: x\n    patterns: ['a']\n    severity: low\n",
		"bad hint key": "hint_keys:\n  nonsense: x\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customCatalog), 0o600))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
