package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/goodvibes/internal/models"
)

func TestDefaultCatalogCompiles(t *testing.T) {
	c, err := NewCatalog(DefaultPatterns(), DefaultTables())
	require.NoError(t, err)
	require.Equal(t, len(DefaultPatterns()), c.Len())
	require.Same(t, Default(), Default())
}

func TestDefaultCategoryMap_CoversEveryCategory(t *testing.T) {
	c := Default()
	known := map[string]bool{}
	for _, p := range c.Patterns() {
		known[p.Category] = true
	}
	for _, cat := range models.AllErrorCategories() {
		for _, pc := range c.PatternCategories(cat) {
			assert.True(t, known[pc], "category %s maps to missing pattern category %s", cat, pc)
		}
	}
}

func TestFindMatchingPattern_TestFailure(t *testing.T) {
	p, ok := Default().FindMatchingPattern(models.CategoryTestFailure, "FAIL src/x.test.ts")
	require.True(t, ok)
	require.Equal(t, TestFailure, p.Category)
}

func TestFindMatchingPattern_CategoryBeatsLibraryOrder(t *testing.T) {
	msg := "AssertionError: Cannot find module './util'"

	// Unrestricted, module_not_found comes first in the library.
	all := Default().FindAllMatchingPatterns(msg)
	require.NotEmpty(t, all)
	require.Equal(t, ModuleNotFound, all[0].Category)

	p, ok := Default().FindMatchingPattern(models.CategoryTestFailure, msg)
	require.True(t, ok)
	require.Equal(t, TestFailure, p.Category)
}

func TestFindMatchingPattern_FallsBackToWholeLibrary(t *testing.T) {
	// Nothing under git_conflict matches, so the unrestricted scan decides.
	p, ok := Default().FindMatchingPattern(models.CategoryGitConflict, "npm ERR! code E404")
	require.True(t, ok)
	require.Equal(t, NpmInstallError, p.Category)

	p, ok = Default().FindMatchingPattern(models.CategoryUnknown, "ENOENT: no such file or directory, open 'a.txt'")
	require.True(t, ok)
	require.Equal(t, FileNotFound, p.Category)
}

func TestFindMatchingPattern_NoMatch(t *testing.T) {
	_, ok := Default().FindMatchingPattern(models.CategoryUnknown, "everything is fine")
	require.False(t, ok)
}

func TestFindMatchingPattern_CategoryTable(t *testing.T) {
	tests := []struct {
		category models.ErrorCategory
		message  string
		want     string
	}{
		{models.CategoryTypeScriptError, "src/a.ts(3,5): error TS2339: Property 'foo' does not exist on type 'Bar'.", TypeScriptTypeError},
		{models.CategoryTypeScriptError, "Type 'string' is not assignable to type 'number'.", TypeMismatch},
		{models.CategoryNpmInstall, "npm ERR! ERESOLVE unable to resolve dependency tree", NpmInstallError},
		{models.CategoryNpmInstall, "ERESOLVE could not resolve", NpmPeerDependency},
		{models.CategoryBuildFailure, "SyntaxError: Unexpected token '}'", SyntaxError},
		{models.CategoryBuildFailure, "FATAL ERROR: JavaScript heap out of memory", ResourceExhaustion},
		{models.CategoryFileNotFound, "bash: ./deploy.sh: Permission denied", PermissionDenied},
		{models.CategoryGitConflict, "CONFLICT (content): Merge conflict in README.md", GitConflict},
		{models.CategoryGitConflict, "! [rejected] main -> main (non-fast-forward)", GitPushRejected},
		{models.CategoryDatabaseError, `duplicate key value violates unique constraint "users_pkey"`, DatabaseConstraint},
		{models.CategoryDatabaseError, "SQLITE_ERROR: no such table: users", DatabaseMigration},
		{models.CategoryAPIError, "HTTP 429 Too Many Requests", APIRateLimit},
		{models.CategoryAPIError, "request failed: 401 Unauthorized", APIAuth},
		{models.CategoryAPIError, "TypeError: fetch failed", APINetwork},
	}
	for _, tt := range tests {
		t.Run(string(tt.category)+"/"+tt.want, func(t *testing.T) {
			p, ok := Default().FindMatchingPattern(tt.category, tt.message)
			require.True(t, ok)
			require.Equal(t, tt.want, p.Category)
		})
	}
}

func TestFindAllMatchingPatterns_OnePerPattern(t *testing.T) {
	// Two regexes of file_not_found match; the pattern must appear once.
	all := Default().FindAllMatchingPatterns("ENOENT: no such file or directory")
	count := 0
	for _, p := range all {
		if p.Category == FileNotFound {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestFindAllMatchingPatterns_LibraryOrder(t *testing.T) {
	defs := []models.RecoveryPattern{
		{Category: "a", Patterns: []string{`x`}, SuggestedFix: "fa", Severity: models.SeverityLow},
		{Category: "b", Patterns: []string{`nope`}, SuggestedFix: "fb", Severity: models.SeverityLow},
		{Category: "c", Patterns: []string{`x`, `xx`}, SuggestedFix: "fc", Severity: models.SeverityHigh},
	}
	c, err := NewCatalog(defs, Tables{})
	require.NoError(t, err)

	all := c.FindAllMatchingPatterns("xx")
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].Category)
	require.Equal(t, "c", all[1].Category)
	require.Empty(t, c.FindAllMatchingPatterns("zzz"))
}

func TestHighestSeverity(t *testing.T) {
	require.Equal(t, models.SeverityLow, HighestSeverity(nil))

	ps := []models.RecoveryPattern{
		{Severity: models.SeverityLow},
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityMedium},
	}
	require.Equal(t, models.SeverityCritical, HighestSeverity(ps))

	got := HighestSeverity(ps)
	for _, p := range ps {
		require.GreaterOrEqual(t, got.Rank(), p.Severity.Rank())
	}
}

func TestHighestSeverity_AllMatchesOfRealMessage(t *testing.T) {
	all := Default().FindAllMatchingPatterns("ENOSPC: no space left on device, write")
	got := HighestSeverity(all)
	require.True(t, got.Valid())
	require.Equal(t, models.SeverityCritical, got)
}

func TestSuggestedFix(t *testing.T) {
	c := Default()

	fresh := models.ErrorState{Phase: 1}
	fix := c.SuggestedFix(models.CategoryGitConflict, "CONFLICT (content): Merge conflict in a.go", fresh)
	require.Contains(t, fix, "git status")
	require.NotContains(t, fix, DifferentApproachNote)

	require.Equal(t, GenericFix, c.SuggestedFix(models.CategoryUnknown, "all good", fresh))

	// Phase 2 without strategies: no note.
	require.Equal(t, GenericFix, c.SuggestedFix(models.CategoryUnknown, "all good", models.ErrorState{Phase: 2}))

	tried := models.ErrorState{
		Phase:                  2,
		FixStrategiesAttempted: []models.FixStrategy{{Phase: 1, Strategy: "reinstall"}},
	}
	require.Equal(t, GenericFix+DifferentApproachNote, c.SuggestedFix(models.CategoryUnknown, "all good", tried))

	// Phase 1 with strategies: no note.
	tried.Phase = 1
	require.Equal(t, GenericFix, c.SuggestedFix(models.CategoryUnknown, "all good", tried))
}

func TestClassify(t *testing.T) {
	got := Default().Classify(models.CategoryTestFailure, "AssertionError: Cannot find module './util'")
	require.True(t, got.Matched)
	require.NotNil(t, got.Pattern)
	require.Equal(t, TestFailure, got.Pattern.Category)
	require.Equal(t, models.SeverityHigh, got.HighestSeverity)

	none := Default().Classify(models.CategoryUnknown, "fine")
	require.False(t, none.Matched)
	require.Nil(t, none.Pattern)
	require.NotNil(t, none.AllMatches)
	require.Equal(t, models.SeverityLow, none.HighestSeverity)
}

func TestNewCatalog_BadRegex(t *testing.T) {
	_, err := NewCatalog([]models.RecoveryPattern{{Category: "broken", Patterns: []string{`(`}}}, Tables{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := Default()
	p, ok := c.FindMatchingPattern(models.CategoryTestFailure, "FAIL x")
	require.True(t, ok)
	p.Patterns[0] = "mutated"

	again, _ := c.FindMatchingPattern(models.CategoryTestFailure, "FAIL x")
	require.NotEqual(t, "mutated", again.Patterns[0])
}

func TestFindMatchingPattern_StatusCodesNeedHTTPContext(t *testing.T) {
	c := Default()
	for _, msg := range []string{"ReferenceError at app.js:401:12", "src/util.ts:429 unexpected token", "ran 403 checks"} {
		for _, p := range c.FindAllMatchingPatterns(msg) {
			require.NotContains(t, []string{APIAuth, APIRateLimit}, p.Category, msg)
		}
	}

	p, ok := c.FindMatchingPattern(models.CategoryAPIError, "Request failed with status code 403")
	require.True(t, ok)
	require.Equal(t, APIAuth, p.Category)

	p, ok = c.FindMatchingPattern(models.CategoryUnknown, "upstream returned HTTP 429")
	require.True(t, ok)
	require.Equal(t, APIRateLimit, p.Category)
}
